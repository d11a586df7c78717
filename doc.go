// Package authcore implements the authentication and session-lifecycle core
// of the finance tracker backend: registration, email-proofed activation,
// lockout-aware login with adaptive step-up verification, rotating opaque
// refresh tokens, and password reset.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, UserProfile, MetricsSnapshot, etc.). Durable
// records live behind the [store.Store] boundary (store/memory for tests,
// store/postgres for production); ephemeral state (send budgets, step-up
// continuations) lives in Redis. Internal coordination — token codecs, rate
// limiting, audit dispatch — lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose the Redis client, store internals, or secret hashes in its
//     public API.
//   - Render or deliver email: the [Notifier] receives kinds and parameters,
//     nothing else.
//   - Block a request on outbound delivery; notifications and audit events
//     are dispatched asynchronously.
//
// # Concurrency contract
//
// Every read-modify-write of shared state (failed-login counting, refresh
// rotation, verification consumption, send-budget increments) executes as a
// single atomic unit inside the backing store. Two racing requests for the
// same user never double-apply a transition. VerifyAccessToken is stateless
// and performs no store round-trips.
package authcore
