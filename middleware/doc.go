// Package middleware exposes HTTP middleware adapters built on top of
// authcore.Engine access-token verification.
//
// # Guards
//
//   - [RequireAccessToken] — stateless JWT verification, claims into context.
//   - [RequireVerifiedEmail] — additionally requires the verified claim.
//   - [ClientIP] — stamps the caller's address for the step-up heuristic.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.VerifyAccessToken.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the record store or Redis.
package middleware
