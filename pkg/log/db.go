// SPDX-License-Identifier: GPL-2.0-or-later

package log

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Entries are stored under time + sequence keys so
// entries logged in the same microsecond are all kept.
var logBucket = []byte("logs")

const (
	defaultMaxKeys = 100000
	keySize        = 16
)

// ErrDBNotOpen database is not initialized.
var ErrDBNotOpen = errors.New("log database is not open")

// DB stores log entries in a bbolt database and
// drops the oldest entries when maxKeys is reached.
type DB struct {
	path    string
	maxKeys int

	db *bolt.DB
	wg *sync.WaitGroup

	// Held by SaveLogs so the database is closed after the last write.
	writers sync.WaitGroup
}

// NewDB returns a log database, Init must be called before use.
func NewDB(path string, wg *sync.WaitGroup) *DB {
	return &DB{
		path:    path,
		maxKeys: defaultMaxKeys,
		wg:      wg,
	}
}

// Init opens the database, it is closed when ctx is canceled.
func (d *DB) Init(ctx context.Context) error {
	db, err := bolt.Open(d.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open log database %v: %w", d.path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(logBucket)
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("create bucket: %w", err)
	}
	d.db = db

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		<-ctx.Done()
		d.writers.Wait()
		db.Close()
	}()
	return nil
}

// SaveLogs writes every entry of the logger until ctx is canceled.
func (d *DB) SaveLogs(ctx context.Context, l *Logger) {
	d.writers.Add(1)
	defer d.writers.Done()

	feed, cancel := l.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-feed:
			if err := d.save(entry); err != nil {
				fmt.Fprintf(os.Stderr, "could not save log: %v: %v\n", entry.Msg, err)
			}
		}
	}
}

func (d *DB) save(entry Entry) error {
	if d.db == nil {
		return ErrDBNotOpen
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(logBucket)
		for b.Stats().KeyN >= d.maxKeys {
			oldest, _ := b.Cursor().First()
			if oldest == nil {
				break
			}
			if err := b.Delete(oldest); err != nil {
				return fmt.Errorf("delete oldest: %w", err)
			}
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(newKey(entry.Time, seq), value)
	})
}

// Query filters stored logs.
type Query struct {
	Levels  []Level
	Sources []string

	// Only entries before Time, zero means now.
	Time  UnixMicro
	Limit int
}

func (q Query) match(e Entry) bool {
	return LevelInLevels(e.Level, q.Levels) && StringInStrings(e.Src, q.Sources)
}

// Query returns matching entries, newest first.
func (d *DB) Query(q Query) ([]Entry, error) {
	if d.db == nil {
		return nil, ErrDBNotOpen
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultMaxKeys
	}

	var entries []Entry
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(logBucket).Cursor()

		var k, v []byte
		if q.Time == 0 {
			k, v = c.Last()
		} else {
			// Seek lands on the first key at or after Time.
			c.Seek(timePrefix(q.Time))
			k, v = c.Prev()
		}

		for ; k != nil && len(entries) < limit; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshal log: %w", err)
			}
			if q.match(e) {
				entries = append(entries, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func timePrefix(t UnixMicro) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t))
	return b
}

func newKey(t UnixMicro, seq uint64) []byte {
	key := make([]byte, keySize)
	binary.BigEndian.PutUint64(key, uint64(t))
	binary.BigEndian.PutUint64(key[8:], seq)
	return key
}
