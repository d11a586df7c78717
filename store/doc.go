// Package store defines the credential store adapter boundary: the record
// types (users, verification records, refresh sessions) and the [Store]
// interface with the atomic read-modify-write primitives the engine depends
// on. Implementations live in store/memory and store/postgres.
package store
