// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package system

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dashgps/pkg/log"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultParallelism is used when the cpu count is unknown.
const DefaultParallelism = 4

type countsFunc func(logical bool) (int, error)

// Parallelism returns the number of logical cpus.
func Parallelism() int {
	return parallelism(cpu.Counts)
}

func parallelism(counts countsFunc) int {
	n, err := counts(true)
	if err != nil || n <= 0 {
		return DefaultParallelism
	}
	return n
}

// Status stores system status.
type Status struct {
	CPUUsage int `json:"cpuUsage"`
	RAMUsage int `json:"ramUsage"`
	CPUCount int `json:"cpuCount"`
}

// ErrNoCPUValues cpu usage returned no values.
var ErrNoCPUValues = errors.New("no cpu usage values")

type cpuFunc func(context.Context, time.Duration, bool) ([]float64, error)
type ramFunc func() (*mem.VirtualMemoryStat, error)

// System .
type System struct {
	cpu    cpuFunc
	ram    ramFunc
	counts countsFunc

	status   Status
	duration time.Duration

	log log.ILogger
	mu  sync.Mutex
	o   sync.Once
}

// New returns new System.
func New(logger log.ILogger) *System {
	return &System{
		cpu:    cpu.PercentWithContext,
		ram:    mem.VirtualMemory,
		counts: cpu.Counts,

		duration: 10 * time.Second,

		log: logger,
	}
}

func (s *System) update(ctx context.Context) error {
	cpuUsage, err := s.cpu(ctx, s.duration, false)
	if err != nil {
		return fmt.Errorf("could not get cpu usage: %w", err)
	}
	if len(cpuUsage) == 0 {
		return ErrNoCPUValues
	}
	ramUsage, err := s.ram()
	if err != nil {
		return fmt.Errorf("could not get ram usage: %w", err)
	}

	s.mu.Lock()
	s.status = Status{
		CPUUsage: int(cpuUsage[0]),
		RAMUsage: int(ramUsage.UsedPercent),
		CPUCount: parallelism(s.counts),
	}
	s.mu.Unlock()

	return nil
}

// StatusLoop updates system status until context is canceled.
func (s *System) StatusLoop(ctx context.Context) {
	s.o.Do(func() {
		for {
			if ctx.Err() != nil {
				return
			}
			if err := s.update(ctx); err != nil && ctx.Err() == nil {
				log.Errorf(s.log, "app", "could not update system status: %v", err)
				select {
				case <-time.After(s.duration):
				case <-ctx.Done():
				}
			}
		}
	})
}

// Status returns cpu and ram usage.
func (s *System) Status() Status {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.status
}
