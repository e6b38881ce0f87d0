// Package main starts dashgps.
package main

import (
	"dashgps"
	"log"
)

func main() {
	if err := dashgps.Run(); err != nil {
		log.Fatal(err)
	}
}
