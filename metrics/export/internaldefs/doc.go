// Package internaldefs holds the shared metric name/help definitions used by
// the exporter packages. It exists so the otel and prometheus exporters stay
// byte-for-byte consistent about naming without importing each other.
package internaldefs
