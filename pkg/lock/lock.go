// Package lock serializes ledger-mutating work per laboratory (and per person
// within a laboratory) either inside one process or across replicas via Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotAcquired is returned when a lock could not be obtained before the wait expired.
var ErrNotAcquired = errors.New("lock not acquired")

// Unlock releases a held lock. Calling it more than once is a no-op.
type Unlock func()

// Locker grants exclusive access to a named key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// LabKey names the lock held around every posting to or deletion from a
// laboratory ledger.
func LabKey(labID uuid.UUID) string {
	return fmt.Sprintf("lab:%s", labID)
}

// PersonKey names the lock guarding salary reconciliation for one person in a laboratory.
func PersonKey(labID uuid.UUID, personID string) string {
	return fmt.Sprintf("lab:%s:person:%s", labID, personID)
}

// Scope classifies a key produced by LabKey or PersonKey for metric labels.
func Scope(key string) string {
	switch {
	case strings.Contains(key, ":person:"):
		return "person"
	case strings.HasPrefix(key, "lab:"):
		return "lab"
	default:
		return "other"
	}
}

// Observed reports how long each successful acquisition waited.
type Observed struct {
	next    Locker
	observe func(key string, waited time.Duration)
}

// Observe wraps next so every acquisition reports its wait to observe.
func Observe(next Locker, observe func(key string, waited time.Duration)) Locker {
	if observe == nil {
		return next
	}
	return &Observed{next: next, observe: observe}
}

func (o *Observed) Lock(ctx context.Context, key string) (Unlock, error) {
	started := time.Now()
	unlock, err := o.next.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	o.observe(key, time.Since(started))
	return unlock, nil
}
