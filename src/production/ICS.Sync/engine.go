package icssync

import (
	"context"
	"fmt"
	"strings"

	logger "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Logger"
	protocol "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Protocol"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
)

// Engine decides which backlog command each terminal receives next.
//
// Every command in today's partition is broadcast to every terminal; the
// per-device cursor is the device's delivered set, so nothing is pre-queued
// per terminal and every poll re-reads the store.
type Engine struct {
	registry interfaces.DeviceRegistry
	backlog  interfaces.CommandBacklog
	sweeper  *Sweeper
	locks    *serialLocks
	logger   *logger.Logger
}

func NewEngine(registry interfaces.DeviceRegistry, backlog interfaces.CommandBacklog, sweeper *Sweeper, log *logger.Logger) *Engine {
	return &Engine{
		registry: registry,
		backlog:  backlog,
		sweeper:  sweeper,
		locks:    newSerialLocks(),
		logger:   log.WithComponent("sync"),
	}
}

// Handshake registers serial on first contact. A due retention sweep runs
// first; its failure is logged and does not fail the handshake.
func (e *Engine) Handshake(ctx context.Context, serial string) (created bool, err error) {
	if err := validateSerial(serial); err != nil {
		return false, err
	}

	e.sweepIfDue(ctx)

	_, created, err = e.registry.EnsureDevice(ctx, serial)
	if err != nil {
		return false, fmt.Errorf("failed to register device %s: %w", serial, err)
	}
	if created {
		e.logger.Logger.Info().Str("sn", serial).Msg("Registered new terminal")
	}
	return created, nil
}

// Dispatch returns the first command of today's backlog not yet delivered
// to serial and records it as delivered. ok is false when there is no work.
//
// Polls for the same serial are serialized within this process. Processes
// sharing one store can still hand the same command to a device twice if
// they poll it at the same instant.
func (e *Engine) Dispatch(ctx context.Context, serial string) (command string, ok bool, err error) {
	if err := validateSerial(serial); err != nil {
		return "", false, err
	}

	// terminals often poll for days without a new handshake
	e.sweepIfDue(ctx)

	unlock := e.locks.lock(serial)
	defer unlock()

	partition, err := e.backlog.CurrentPartition(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to read command backlog: %w", err)
	}

	device, _, err := e.registry.EnsureDevice(ctx, serial)
	if err != nil {
		return "", false, fmt.Errorf("failed to load device %s: %w", serial, err)
	}

	pending := PendingCommands(partition, device.DeliveredCommands)
	if len(pending) == 0 {
		return "", false, nil
	}

	command = pending[0]
	var pin *string
	if p, found := protocol.ExtractPin(command); found {
		pin = &p
	}

	if err := e.registry.RecordDelivery(ctx, serial, command, pin); err != nil {
		return "", false, fmt.Errorf("failed to record delivery to %s: %w", serial, err)
	}

	e.logger.Logger.Debug().
		Str("sn", serial).
		Int("pending", len(pending)-1).
		Msg("Dispatched command")
	return command, true, nil
}

// sweepIfDue runs the day's retention sweep if nobody has yet. Failures are
// logged and retried on the next call.
func (e *Engine) sweepIfDue(ctx context.Context) {
	if e.sweeper == nil {
		return
	}
	if _, _, err := e.sweeper.SweepIfDue(ctx); err != nil {
		e.logger.WithError(err).Warn("Retention sweep failed, will retry on next terminal call")
	}
}

// Enqueue appends administrative commands to today's partition.
func (e *Engine) Enqueue(ctx context.Context, commands ...string) error {
	if len(commands) == 0 {
		return fmt.Errorf("%w: at least one command is required", ErrValidation)
	}
	for _, c := range commands {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: empty command", ErrValidation)
		}
	}

	if err := e.backlog.Enqueue(ctx, commands...); err != nil {
		return fmt.Errorf("failed to enqueue commands: %w", err)
	}
	e.logger.Logger.Info().Int("count", len(commands)).Msg("Queued commands")
	return nil
}

// Backlog returns today's partition in enqueue order
func (e *Engine) Backlog(ctx context.Context) ([]string, error) {
	partition, err := e.backlog.CurrentPartition(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read command backlog: %w", err)
	}
	return partition, nil
}

// PendingCommands is backlog minus delivered in backlog order, with
// byte-identical backlog entries collapsed to their first occurrence.
func PendingCommands(backlog, delivered []string) []string {
	skip := make(map[string]struct{}, len(delivered)+len(backlog))
	for _, c := range delivered {
		skip[c] = struct{}{}
	}

	pending := make([]string, 0)
	for _, c := range backlog {
		if _, seen := skip[c]; seen {
			continue
		}
		skip[c] = struct{}{}
		pending = append(pending, c)
	}
	return pending
}
