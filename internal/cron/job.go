package cron

import "context"

// Job is one maintenance task executed by the worker on every cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}
