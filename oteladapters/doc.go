// Package oteladapters implements the observability interfaces of the library package
// on top of OpenTelemetry, so the coordinator and the SQL engine can report into
// a real logs, metrics, and tracing pipeline without depending on it themselves.
package oteladapters
