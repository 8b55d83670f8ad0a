package sequence

import (
	"context"
	"time"
)

// Outcome classifies how a single index was answered.
type Outcome string

const (
	OutcomeInt      Outcome = "int"
	OutcomeText     Outcome = "text"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Record describes one answered index.
type Record struct {
	Sequence  Name
	Index     int
	Outcome   Outcome
	Digits    int
	Duration  time.Duration
	Timestamp time.Time
}

// Observer is notified after every index a Sequence answers. Implementations
// must not block: they run on the request path.
type Observer interface {
	Observe(ctx context.Context, rec Record)
}

// Observers fans a record out to several observers in order.
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(ctx context.Context, rec Record) {
	for _, obs := range o {
		obs.Observe(ctx, rec)
	}
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, rec Record)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, rec Record) { f(ctx, rec) }
