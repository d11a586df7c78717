package authcore

import (
	"sync/atomic"
)

// MetricID defines a public type used by authcore APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricRegisterSuccess is an exported constant or variable used by the authentication core.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterDuplicate is an exported constant or variable used by the authentication core.
	MetricRegisterDuplicate
	// MetricLoginSuccess is an exported constant or variable used by the authentication core.
	MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the authentication core.
	MetricLoginFailure
	// MetricLoginLocked is an exported constant or variable used by the authentication core.
	MetricLoginLocked
	// MetricAccountLocked is an exported constant or variable used by the authentication core.
	MetricAccountLocked
	// MetricStepUpRequired is an exported constant or variable used by the authentication core.
	MetricStepUpRequired
	// MetricStepUpSuccess is an exported constant or variable used by the authentication core.
	MetricStepUpSuccess
	// MetricStepUpFailure is an exported constant or variable used by the authentication core.
	MetricStepUpFailure
	// MetricRefreshSuccess is an exported constant or variable used by the authentication core.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the authentication core.
	MetricRefreshFailure
	// MetricRefreshReuseDetected is an exported constant or variable used by the authentication core.
	MetricRefreshReuseDetected
	// MetricLogout is an exported constant or variable used by the authentication core.
	MetricLogout
	// MetricEmailVerificationRequest is an exported constant or variable used by the authentication core.
	MetricEmailVerificationRequest
	// MetricEmailVerificationSuccess is an exported constant or variable used by the authentication core.
	MetricEmailVerificationSuccess
	// MetricEmailVerificationFailure is an exported constant or variable used by the authentication core.
	MetricEmailVerificationFailure
	// MetricPasswordResetRequest is an exported constant or variable used by the authentication core.
	MetricPasswordResetRequest
	// MetricPasswordResetSuccess is an exported constant or variable used by the authentication core.
	MetricPasswordResetSuccess
	// MetricPasswordResetFailure is an exported constant or variable used by the authentication core.
	MetricPasswordResetFailure
	// MetricPasswordChangeSuccess is an exported constant or variable used by the authentication core.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeFailure is an exported constant or variable used by the authentication core.
	MetricPasswordChangeFailure
	// MetricPasswordHashUpgraded is an exported constant or variable used by the authentication core.
	MetricPasswordHashUpgraded
	// MetricRateLimitHit is an exported constant or variable used by the authentication core.
	MetricRateLimitHit
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by authcore APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot defines a public type used by authcore APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

// Inc describes the inc operation and its observable behavior.
//
// Inc may return an error when input validation, dependency calls, or security checks fail.
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value describes the value operation and its observable behavior.
//
// Value may return an error when input validation, dependency calls, or security checks fail.
// Value does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot may return an error when input validation, dependency calls, or security checks fail.
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
