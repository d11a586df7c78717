// Package password implements argon2id password hashing with PHC-encoded
// hashes ($argon2id$v=19$m=...,t=...,p=...$salt$hash).
//
// # Upgrade path
//
// [Hasher.NeedsUpgrade] reports whether a stored hash was produced with
// weaker parameters than the active configuration; the engine rehashes
// transparently on the next successful login.
//
// # Anti-enumeration
//
// [Hasher.VerifyDummy] performs a full-cost comparison against a throwaway
// hash so the unknown-user login path costs the same as a real mismatch.
package password
