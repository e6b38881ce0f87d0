// SPDX-License-Identifier: GPL-2.0-or-later

package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"dashgps/pkg/log"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/require"
)

var errMock = errors.New("mock")

func TestParallelism(t *testing.T) {
	counts := func(n int, err error) countsFunc {
		return func(bool) (int, error) { return n, err }
	}
	require.Equal(t, 8, parallelism(counts(8, nil)))
	require.Equal(t, DefaultParallelism, parallelism(counts(0, nil)))
	require.Equal(t, DefaultParallelism, parallelism(counts(8, errMock)))
	require.Greater(t, Parallelism(), 0)
}

func newTestSystem() *System {
	return &System{
		cpu: func(context.Context, time.Duration, bool) ([]float64, error) {
			return []float64{11.5}, nil
		},
		ram: func() (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{UsedPercent: 22.9}, nil
		},
		counts: func(bool) (int, error) { return 3, nil },
		log:    log.NewMockLogger(),
	}
}

func TestUpdate(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s := newTestSystem()
		require.NoError(t, s.update(context.Background()))
		require.Equal(t, Status{CPUUsage: 11, RAMUsage: 22, CPUCount: 3}, s.Status())
	})
	t.Run("cpuErr", func(t *testing.T) {
		s := newTestSystem()
		s.cpu = func(context.Context, time.Duration, bool) ([]float64, error) {
			return nil, errMock
		}
		require.ErrorIs(t, s.update(context.Background()), errMock)
	})
	t.Run("ramErr", func(t *testing.T) {
		s := newTestSystem()
		s.ram = func() (*mem.VirtualMemoryStat, error) { return nil, errMock }
		require.ErrorIs(t, s.update(context.Background()), errMock)
	})
	t.Run("noValues", func(t *testing.T) {
		s := newTestSystem()
		s.cpu = func(context.Context, time.Duration, bool) ([]float64, error) {
			return nil, nil
		}
		require.ErrorIs(t, s.update(context.Background()), ErrNoCPUValues)
	})
}

func TestStatusLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestSystem()
	s.cpu = func(ctx context.Context, _ time.Duration, _ bool) ([]float64, error) {
		cancel()
		return []float64{50}, nil
	}

	done := make(chan struct{})
	go func() {
		s.StatusLoop(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("status loop did not stop")
	}
	require.Equal(t, 50, s.Status().CPUUsage)
}
