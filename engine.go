package authcore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/fintrackr/authcore/internal/audit"
	"github.com/fintrackr/authcore/internal/rate"
	"github.com/fintrackr/authcore/password"
	"github.com/fintrackr/authcore/store"
	"github.com/fintrackr/authcore/token"
)

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	store        store.Store
	passwordHash *password.Hasher
	tokens       *token.Manager
	limiter      *rate.Limiter
	stepUpStore  *stepUpStore
	audit        *audit.Dispatcher
	notify       *notifyDispatcher
	metrics      *Metrics

	// now is swappable for tests.
	now func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	// Notify drains first: send failures surfaced during the drain still
	// need a live audit dispatcher to land in.
	if e.notify != nil {
		e.notify.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now().UTC()
}

// enumerationDelay burns a small random amount of wall time on paths where
// an early return would otherwise reveal whether an email is registered.
func (e *Engine) enumerationDelay() {
	if e.now != nil {
		// Tests that pin the clock should not pay real sleeps.
		return
	}
	n, err := rand.Int(rand.Reader, big.NewInt(20))
	var jitter int64
	if err == nil {
		jitter = n.Int64()
	}
	time.Sleep(time.Duration(20+jitter) * time.Millisecond)
}

func (e *Engine) storeErr(err error) error {
	// Store implementations wrap ErrUnavailable with driver detail, so the
	// match must walk the chain. The public sentinel stays at the head of
	// the returned error for callers doing errors.Is.
	if errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
