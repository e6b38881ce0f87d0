// SPDX-License-Identifier: GPL-2.0-or-later

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"dashgps/pkg/gps"
	"dashgps/pkg/log"
	"dashgps/pkg/pair"
	"dashgps/pkg/playback"
	"dashgps/pkg/system"

	"github.com/gorilla/websocket"
)

const jsonContentType = "application/json"

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", jsonContentType)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Recordings returns the recordings of the session.
func Recordings(s *playback.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, s.Recordings())
	})
}

// State returns the session state.
func State(s *playback.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, s.State())
	})
}

// Lister lists the files of the recordings directory.
type Lister interface {
	Files() ([]gps.File, error)
}

// Extractor extracts and pairs tracks from a batch of files.
type Extractor interface {
	Extract(ctx context.Context, files []gps.File, progress func()) ([]pair.Recording, error)
}

// Extract rescans the recordings directory and replaces the
// recordings of the session. Only one extraction runs at a time.
func Extract(
	lister Lister,
	extractor Extractor,
	s *playback.Session,
	logger log.ILogger,
) http.Handler {
	var mu sync.Mutex
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		if !mu.TryLock() {
			http.Error(w, "extraction already running", http.StatusConflict)
			return
		}
		defer mu.Unlock()

		files, err := lister.Files()
		if err != nil {
			log.Errorf(logger, "app", "could not list recordings: %v", err)
			http.Error(w, "could not list recordings", http.StatusInternalServerError)
			return
		}

		s.Start(len(files))
		start := time.Now()
		recordings, err := extractor.Extract(r.Context(), files, s.Progress)
		if err != nil {
			s.Complete(nil)
			log.Errorf(logger, "app", "extraction failed: %v", err)
			http.Error(w, "extraction failed", http.StatusInternalServerError)
			return
		}
		s.Complete(recordings)

		log.Infof(logger, "app", "extracted %v recordings from %v files in %v",
			len(recordings), len(files), time.Since(start).Round(time.Millisecond))

		writeJSON(w, s.State())
	})
}

// SyncRequest is sent by the player on every time update.
// Times are in seconds.
type SyncRequest struct {
	File        string  `json:"file"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// Sync opens a websocket that answers every SyncRequest with
// the sample at the playback position or null.
func Sync(s *playback.Session, logger log.ILogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}

		upgrader := websocket.Upgrader{}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		for {
			var req SyncRequest
			if err := c.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debugf(logger, "app", "sync: %v", err)
				}
				return
			}

			var res *gps.Sample
			sample, ok := s.Lookup(req.File, seconds(req.CurrentTime), seconds(req.Duration))
			if ok {
				res = &sample
			}
			if err := c.WriteJSON(res); err != nil {
				return
			}
		}
	})
}

// SystemStatus returns the system status.
func SystemStatus(status func() system.Status) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, status())
	})
}

func parseCSVParam(query url.Values, key string) []string {
	csv := query.Get(key)
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}

func parseLevels(query url.Values) ([]log.Level, error) {
	var levels []log.Level
	for _, levelStr := range parseCSVParam(query, "levels") {
		levelInt, err := strconv.Atoi(levelStr)
		if err != nil {
			return nil, fmt.Errorf("invalid levels list: %v %w", query.Get("levels"), err)
		}
		levels = append(levels, log.Level(levelInt))
	}
	return levels, nil
}

// LogFeed opens a websocket with system logs.
func LogFeed(logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		query := r.URL.Query()

		levels, err := parseLevels(query)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sources := parseCSVParam(query, "sources")

		upgrader := websocket.Upgrader{}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		feed, cancel := logger.Subscribe()
		defer cancel()

		for {
			var entry log.Entry
			select {
			case entry = <-feed:
			case <-logger.Ctx.Done():
				return
			}

			if !log.LevelInLevels(entry.Level, levels) {
				continue
			}
			if !log.StringInStrings(entry.Src, sources) {
				continue
			}

			if err := c.WriteJSON(entry); err != nil {
				return
			}
		}
	})
}

// LogQuerier queries stored logs.
type LogQuerier interface {
	Query(log.Query) ([]log.Entry, error)
}

// LogQuery handles log queries.
func LogQuery(logDB LogQuerier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		query := r.URL.Query()

		limit := query.Get("limit")
		if limit == "" {
			http.Error(w, "limit missing", http.StatusBadRequest)
			return
		}
		limitInt, err := strconv.Atoi(limit)
		if err != nil {
			http.Error(w, fmt.Sprintf("could not convert limit to int: %v", err), http.StatusBadRequest)
			return
		}

		levels, err := parseLevels(query)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var timeInt int
		if t := query.Get("time"); t != "" {
			timeInt, err = strconv.Atoi(t)
			if err != nil {
				http.Error(w, fmt.Sprintf("could not convert time to int: %v", err), http.StatusBadRequest)
				return
			}
		}

		q := log.Query{
			Levels:  levels,
			Sources: parseCSVParam(query, "sources"),
			Time:    log.UnixMicro(timeInt),
			Limit:   limitInt,
		}

		logs, err := logDB.Query(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, logs)
	})
}
