// SPDX-License-Identifier: GPL-2.0-or-later

package log

// API inspired by zerolog https://github.com/rs/zerolog

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level defines log level.
type Level uint8

// Logging constants, matching ffmpeg.
const (
	LevelError   Level = 16
	LevelWarning Level = 24
	LevelInfo    Level = 32
	LevelDebug   Level = 48
)

// UnixMicro time in microseconds.
type UnixMicro uint64

// Entry defines log entry.
type Entry struct {
	Level Level     `json:"level"`
	Time  UnixMicro `json:"time"` // Timestamp.
	Src   string    `json:"src"`  // Source.
	Msg   string    `json:"msg"`  // Message.
}

// ILogger is the logging interface used by the library packages.
type ILogger interface {
	Log(Entry)
}

// Event defines log event.
type Event struct {
	level Level
	time  UnixMicro
	src   string

	logger ILogger
}

// Src sets event source.
func (e *Event) Src(source string) *Event {
	e.src = source
	return e
}

// Time sets event time.
func (e *Event) Time(t time.Time) *Event {
	e.time = UnixMicro(t.UnixMicro())
	return e
}

// Msg sends the *Event with msg added as the message field.
func (e *Event) Msg(msg string) {
	e.logger.Log(Entry{
		Level: e.level,
		Time:  e.time,
		Src:   e.src,
		Msg:   msg,
	})
}

// Msgf sends the event with formatted msg added as the message field.
func (e *Event) Msgf(format string, v ...interface{}) {
	e.Msg(fmt.Sprintf(format, v...))
}

type logFeed chan Entry

// Logger logs.
type Logger struct {
	feed  logFeed      // feed of logs.
	sub   chan logFeed // subscribe requests.
	unsub chan logFeed // unsubscribe requests.

	Ctx context.Context
	wg  *sync.WaitGroup
}

// NewLogger returns a new logger, Start must be called before logging.
func NewLogger(wg *sync.WaitGroup) *Logger {
	return &Logger{
		feed:  make(logFeed),
		sub:   make(chan logFeed),
		unsub: make(chan logFeed),

		Ctx: context.Background(),
		wg:  wg,
	}
}

// NewMockLogger used for testing. Logs are discarded
// unless something subscribes to the feed.
func NewMockLogger() *Logger {
	l := NewLogger(&sync.WaitGroup{})
	l.Start(context.Background())
	return l
}

// Start logger.
func (l *Logger) Start(ctx context.Context) {
	l.Ctx = ctx
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		subs := map[logFeed]struct{}{}
		for {
			select {
			case <-ctx.Done():
				return

			case ch := <-l.sub:
				subs[ch] = struct{}{}

			case ch := <-l.unsub:
				close(ch)
				delete(subs, ch)

			case entry := <-l.feed:
				for ch := range subs {
					ch <- entry
				}
			}
		}
	}()
}

// Log sends entry to all subscribers.
func (l *Logger) Log(entry Entry) {
	if entry.Time == 0 {
		entry.Time = UnixMicro(time.Now().UnixMicro())
	}
	select {
	case l.feed <- entry:
	case <-l.Ctx.Done():
	}
}

// CancelFunc cancels log feed subsciption.
type CancelFunc func()

// Subscribe returns a new chan with log feed and a CancelFunc.
func (l *Logger) Subscribe() (<-chan Entry, CancelFunc) {
	feed := make(logFeed)
	l.sub <- feed

	cancel := func() {
		l.unSubscribe(feed)
	}
	return feed, cancel
}

func (l *Logger) unSubscribe(feed logFeed) {
	// Read feed until unsub request is accepted.
	for {
		select {
		case l.unsub <- feed:
			return
		case <-feed:
		}
	}
}

// LogToStdout prints log feed to Stdout.
func (l *Logger) LogToStdout(ctx context.Context) {
	l.LogToWriter(ctx, os.Stdout)
}

// LogToWriter prints log feed to w until context is canceled.
func (l *Logger) LogToWriter(ctx context.Context, w io.Writer) {
	feed, cancel := l.Subscribe()
	defer cancel()
	for {
		select {
		case entry := <-feed:
			fmt.Fprintln(w, formatEntry(entry))
		case <-ctx.Done():
			return
		}
	}
}

func formatEntry(entry Entry) string {
	var output string

	switch entry.Level {
	case LevelError:
		output += "[ERROR] "
	case LevelWarning:
		output += "[WARNING] "
	case LevelInfo:
		output += "[INFO] "
	case LevelDebug:
		output += "[DEBUG] "
	}

	if entry.Src != "" {
		output += strings.ToUpper(entry.Src[:1]) + entry.Src[1:] + ": "
	}

	return output + entry.Msg
}

// Error starts a new message with error level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Error() *Event {
	return newEvent(l, LevelError)
}

// Warn starts a new message with warn level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Warn() *Event {
	return newEvent(l, LevelWarning)
}

// Info starts a new message with info level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Info() *Event {
	return newEvent(l, LevelInfo)
}

// Debug starts a new message with debug level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Debug() *Event {
	return newEvent(l, LevelDebug)
}

func newEvent(logger ILogger, level Level) *Event {
	return &Event{
		level:  level,
		time:   UnixMicro(time.Now().UnixMicro()),
		logger: logger,
	}
}

// Errorf logs a formatted error to any ILogger.
func Errorf(l ILogger, src string, format string, v ...interface{}) {
	newEvent(l, LevelError).Src(src).Msgf(format, v...)
}

// Warnf logs a formatted warning to any ILogger.
func Warnf(l ILogger, src string, format string, v ...interface{}) {
	newEvent(l, LevelWarning).Src(src).Msgf(format, v...)
}

// Infof logs a formatted info message to any ILogger.
func Infof(l ILogger, src string, format string, v ...interface{}) {
	newEvent(l, LevelInfo).Src(src).Msgf(format, v...)
}

// Debugf logs a formatted debug message to any ILogger.
func Debugf(l ILogger, src string, format string, v ...interface{}) {
	newEvent(l, LevelDebug).Src(src).Msgf(format, v...)
}

// LevelInLevels returns true if level is in levels or levels is nil.
func LevelInLevels(level Level, levels []Level) bool {
	if levels == nil {
		return true
	}
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

// StringInStrings returns true if s is in list or list is nil.
func StringInStrings(s string, list []string) bool {
	if list == nil {
		return true
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type discardLogger struct{}

func (discardLogger) Log(Entry) {}

// Discard is a ILogger that drops every entry.
var Discard ILogger = discardLogger{}
