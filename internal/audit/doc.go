// Package audit defines the security audit event model and the asynchronous
// dispatcher that fans events into a caller-provided sink. The dispatcher
// never blocks request handling: events are buffered and either dropped (with
// a counter) or back-pressured against the request context, depending on
// configuration.
package audit
