// SPDX-License-Identifier: GPL-2.0-or-later

// Package loader picks the camera format of a batch of files from their names.
package loader

import (
	"errors"
	"fmt"
	"strings"

	"dashgps/pkg/gps"
)

const extension = ".mp4"

// Rule maps file name suffixes to a camera format.
// A suffix is the text before the ".mp4" extension, matched case-insensitively.
type Rule struct {
	Format gps.CameraFormat `yaml:"format" json:"format"`
	Front  string           `yaml:"front" json:"front"`
	Rear   string           `yaml:"rear" json:"rear"`

	// Streams recorded by the camera without GPS data.
	Ignored []string `yaml:"ignored" json:"ignored"`
}

// DefaultRules in priority order.
var DefaultRules = []Rule{
	{Format: gps.EmbeddedSentence, Front: "f", Rear: "r"},
	{Format: gps.FixedRecord, Front: "a", Rear: "c", Ignored: []string{"b"}},
}

// ErrInvalidRule invalid rule.
var ErrInvalidRule = errors.New("invalid rule")

// Validate returns an error if the rule cannot match front and rear files.
func (r Rule) Validate() error {
	if _, err := r.Format.MarshalText(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if r.Front == "" || r.Rear == "" {
		return fmt.Errorf("%w: front and rear suffix required", ErrInvalidRule)
	}
	if strings.EqualFold(r.Front, r.Rear) {
		return fmt.Errorf("%w: front and rear suffix are equal: %q", ErrInvalidRule, r.Front)
	}
	return nil
}

// ValidateRules validates every rule.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

func hasSuffix(name string, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(name), strings.ToLower(suffix)+extension)
}

func (r Rule) isFront(name string) bool {
	return hasSuffix(name, r.Front)
}

func (r Rule) isRear(name string) bool {
	return hasSuffix(name, r.Rear)
}

// Matches returns true if the name belongs to any stream of the rule.
func (r Rule) Matches(name string) bool {
	if r.isFront(name) || r.isRear(name) {
		return true
	}
	for _, suffix := range r.Ignored {
		if hasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Loader splits a batch of files into front and rear files of one format.
// The zero value is the null loader, it never returns any files.
type Loader struct {
	rule *Rule
}

// NullLoader loader that handles nothing.
var NullLoader = Loader{}

// IsNull returns true for the null loader.
func (l Loader) IsNull() bool {
	return l.rule == nil
}

// Format returns the camera format of the loader.
func (l Loader) Format() (gps.CameraFormat, bool) {
	if l.rule == nil {
		return 0, false
	}
	return l.rule.Format, true
}

// Files returns the front and rear files in input order.
// Files of ignored streams and of other formats are left out.
func (l Loader) Files(files []gps.File) ([]gps.File, []gps.File) {
	if l.rule == nil {
		return nil, nil
	}
	var front, rear []gps.File
	for _, f := range files {
		switch {
		case l.rule.isFront(f.Name()):
			front = append(front, f)
		case l.rule.isRear(f.Name()):
			rear = append(rear, f)
		}
	}
	return front, rear
}

// Select returns the loader of the first rule that matches any of the names.
// DefaultRules are used if no rules are given.
func Select(names []string, rules ...Rule) Loader {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	for i := range rules {
		rule := rules[i]
		for _, name := range names {
			if rule.Matches(name) {
				return Loader{rule: &rule}
			}
		}
	}
	return NullLoader
}

// SelectFiles is Select for a batch of files.
func SelectFiles(files []gps.File, rules ...Rule) Loader {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name()
	}
	return Select(names, rules...)
}
