// Package rate provides the Redis-backed fixed-window rate limiter used to
// throttle verification-email and reset-email issuance per (user, kind).
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// laid out as arl:<kind>:<subject>. Counters are ephemeral; losing them only
// degrades to "more permissive", never to an incorrect denial.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in the root engine).
//   - Be imported outside the authcore module.
package rate
