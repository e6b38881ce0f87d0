// SPDX-License-Identifier: GPL-2.0-or-later

package log

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func newTestDB(t *testing.T) *DB {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logDB := NewDB(filepath.Join(t.TempDir(), "logs.db"), &sync.WaitGroup{})
	require.NoError(t, logDB.Init(ctx))
	return logDB
}

func TestQuery(t *testing.T) {
	msg1 := Entry{Level: LevelError, Time: 4000, Src: "s1", Msg: "msg1"}
	msg2 := Entry{Level: LevelWarning, Time: 3000, Src: "s1", Msg: "msg2"}
	msg3 := Entry{Level: LevelInfo, Time: 2000, Src: "s2", Msg: "msg3"}

	logDB := newTestDB(t)
	require.NoError(t, logDB.save(msg3))
	require.NoError(t, logDB.save(msg2))
	require.NoError(t, logDB.save(msg1))

	cases := map[string]struct {
		input    Query
		expected []Entry
	}{
		"all":             {Query{}, []Entry{msg1, msg2, msg3}},
		"singleLevel":     {Query{Levels: []Level{LevelWarning}}, []Entry{msg2}},
		"multipleLevels":  {Query{Levels: []Level{LevelError, LevelInfo}}, []Entry{msg1, msg3}},
		"singleSource":    {Query{Sources: []string{"s2"}}, []Entry{msg3}},
		"multipleSources": {Query{Sources: []string{"s1", "s2"}}, []Entry{msg1, msg2, msg3}},
		"limit":           {Query{Limit: 2}, []Entry{msg1, msg2}},
		"time":            {Query{Time: 4000}, []Entry{msg2, msg3}},
		"noMatch":         {Query{Sources: []string{"nil"}}, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			entries, err := logDB.Query(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.expected, entries)
		})
	}
}

func TestMaxKeys(t *testing.T) {
	logDB := newTestDB(t)
	logDB.maxKeys = 2

	for _, ts := range []UnixMicro{1000, 2000, 3000} {
		require.NoError(t, logDB.save(Entry{Time: ts, Msg: "x"}))
	}

	err := logDB.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(logBucket)
		require.Equal(t, 2, b.Stats().KeyN)

		k, _ := b.Cursor().First()
		require.Equal(t, timePrefix(2000), k[:8])
		return nil
	})
	require.NoError(t, err)
}

func TestSameTime(t *testing.T) {
	logDB := newTestDB(t)

	a := Entry{Level: LevelInfo, Time: 1000, Src: "pool", Msg: "a"}
	b := Entry{Level: LevelInfo, Time: 1000, Src: "pool", Msg: "b"}
	require.NoError(t, logDB.save(a))
	require.NoError(t, logDB.save(b))

	entries, err := logDB.Query(Query{})
	require.NoError(t, err)
	require.Equal(t, []Entry{b, a}, entries)
}

func TestNotOpen(t *testing.T) {
	logDB := NewDB(filepath.Join(t.TempDir(), "logs.db"), &sync.WaitGroup{})

	_, err := logDB.Query(Query{})
	require.ErrorIs(t, err, ErrDBNotOpen)
	require.ErrorIs(t, logDB.save(Entry{}), ErrDBNotOpen)
}

func TestSaveLogs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logDB := newTestDB(t)
	logger := newTestLogger(t)
	go logDB.SaveLogs(ctx, logger)

	require.Eventually(t, func() bool {
		logger.Error().Src("pool").Msg("saved")
		entries, err := logDB.Query(Query{Limit: 1})
		return err == nil && len(entries) == 1 && entries[0].Msg == "saved"
	}, 2*time.Second, 10*time.Millisecond)
}
