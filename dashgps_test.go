package dashgps

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dashgps/pkg/gps"
	"dashgps/pkg/gps/gpsmock"
	"dashgps/pkg/pair"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func fixes(offsets ...time.Duration) []gpsmock.Fix {
	var out []gpsmock.Fix
	for _, o := range offsets {
		out = append(out, gpsmock.Fix{
			Time:      base.Add(o),
			Latitude:  3342.1299,
			LatHemi:   'N',
			Longitude: 8406.2615,
			LonHemi:   'W',
			Knots:     52.078,
		})
	}
	return out
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func recordingsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "0001F.MP4"), gpsmock.SentenceFile(fixes(0, time.Second)...))
	writeFile(t, filepath.Join(dir, "a", "0001R.MP4"), gpsmock.SentenceFile(fixes(3*time.Second)...))
	writeFile(t, filepath.Join(dir, "b", "0002F.MP4"), gpsmock.SentenceFile(fixes(time.Hour)...))
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("x"))
	return dir
}

func TestExtractCmd(t *testing.T) {
	for _, mode := range []string{"-sync", "-workers=2"} {
		t.Run(mode, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), []string{"extract", mode, recordingsDir(t)}, &stdout, &stderr)
			require.NoError(t, err)

			var recordings []pair.Recording
			require.NoError(t, json.Unmarshal(stdout.Bytes(), &recordings))
			require.Len(t, recordings, 2)

			require.Equal(t, "0001F.MP4", recordings[0].Front.Name)
			require.Len(t, recordings[0].Front.Track, 2)
			require.NotNil(t, recordings[0].Rear)
			require.Equal(t, "0001R.MP4", recordings[0].Rear.Name)

			require.Equal(t, "0002F.MP4", recordings[1].Front.Name)
			require.Nil(t, recordings[1].Rear)

			sample := recordings[0].Front.Track[0]
			require.InDelta(t, 33.702165, sample.Latitude, 1e-6)
			require.InDelta(t, -84.104358, sample.Longitude, 1e-6)
			require.True(t, base.Equal(sample.Time))
		})
	}
	t.Run("window", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		err := run(context.Background(),
			[]string{"extract", "-sync", "-window=2s", recordingsDir(t)}, &stdout, &stderr)
		require.NoError(t, err)

		var recordings []pair.Recording
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &recordings))
		require.Nil(t, recordings[0].Rear)
	})
	t.Run("noArgs", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, run(context.Background(), []string{"extract"}, &stdout, &stderr))
		require.Empty(t, stdout.String())
		require.Contains(t, stderr.String(), "-workers")
	})
	t.Run("missingPath", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		path := filepath.Join(t.TempDir(), "nil")
		err := run(context.Background(), []string{"extract", "-sync", path}, &stdout, &stderr)
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestCollectFiles(t *testing.T) {
	dir := recordingsDir(t)
	single := filepath.Join(dir, "a", "0001R.MP4")

	files, err := collectFiles([]string{single, filepath.Join(dir, "b")})
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name())
		require.IsType(t, &gps.DiskFile{}, f)
	}
	require.Equal(t, []string{"0001R.MP4", "0002F.MP4"}, names)
}

func TestInspectCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001F.MP4")
	writeFile(t, path, gpsmock.SentenceFile(fixes(0)...))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"inspect", path}, &stdout, &stderr))
	require.Contains(t, stdout.String(), "[moov]")
	require.Contains(t, stdout.String(), "[gps ]")

	err := run(context.Background(), []string{"inspect"}, &stdout, &stderr)
	require.ErrorIs(t, err, ErrInvalidArgs)
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"record"}, &stdout, &stderr)
	require.ErrorIs(t, err, ErrUnknownCommand)
	require.True(t, strings.HasPrefix(stderr.String(), "usage: dashgps"))

	stderr.Reset()
	require.NoError(t, run(context.Background(), nil, &stdout, &stderr))
	require.Contains(t, stderr.String(), "commands:")
}
