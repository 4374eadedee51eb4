package interfaces

import "context"

type CommandBacklog interface {
	// Append commands to today's partition, preserving argument order
	Enqueue(ctx context.Context, commands ...string) error

	// Today's partition in enqueue order; empty when nothing was queued
	CurrentPartition(ctx context.Context) ([]string, error)

	// Delete partitions dated before today
	SweepOlderThanToday(ctx context.Context) (int, error)
}
