package icssync

import (
	"context"
	"fmt"
	"sync"

	clock "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Clock"
	logger "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Logger"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
)

// SweepResult counts what a retention sweep removed
type SweepResult struct {
	Partitions int `json:"partitions"`
	Devices    int `json:"devices"`
}

// Sweeper removes backlog partitions and device records from previous days.
type Sweeper struct {
	registry interfaces.DeviceRegistry
	backlog  interfaces.CommandBacklog
	clock    clock.Clock
	logger   *logger.Logger

	mu      sync.Mutex
	lastDay string
}

func NewSweeper(registry interfaces.DeviceRegistry, backlog interfaces.CommandBacklog, clk clock.Clock, log *logger.Logger) *Sweeper {
	return &Sweeper{
		registry: registry,
		backlog:  backlog,
		clock:    clk,
		logger:   log.WithComponent("sweeper"),
	}
}

// Sweep deletes everything dated before today. Same-day state is untouched.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	partitions, err := s.backlog.SweepOlderThanToday(ctx)
	result.Partitions = partitions
	if err != nil {
		return result, fmt.Errorf("failed to sweep command backlog: %w", err)
	}

	devices, err := s.registry.SweepOlderThan(ctx, s.clock.Now())
	result.Devices = devices
	if err != nil {
		return result, fmt.Errorf("failed to sweep device registry: %w", err)
	}

	if result.Partitions > 0 || result.Devices > 0 {
		s.logger.Logger.Info().
			Int("partitions", result.Partitions).
			Int("devices", result.Devices).
			Msg("Retention sweep removed stale state")
	}
	return result, nil
}

// SweepIfDue sweeps at most once per calendar day. It never waits for a
// sweep already running on another request; ran is false in that case and
// when today's sweep has already succeeded.
func (s *Sweeper) SweepIfDue(ctx context.Context) (result SweepResult, ran bool, err error) {
	if !s.mu.TryLock() {
		return result, false, nil
	}
	defer s.mu.Unlock()

	today := clock.DayKey(s.clock.Now())
	if s.lastDay == today {
		return result, false, nil
	}

	result, err = s.Sweep(ctx)
	if err != nil {
		return result, true, err
	}
	s.lastDay = today
	return result, true, nil
}
