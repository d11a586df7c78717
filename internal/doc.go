// Package internal holds shared primitives for the authcore module:
// cryptographic random generation, opaque token encoding, and OTP
// generation. It must not import any sibling package.
package internal
