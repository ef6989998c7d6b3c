// Package logging provides structured logging built on log/slog.
//
// Every log line carries the service name and version; components add
// their own context with With. Consumers elsewhere in the codebase
// declare their own small Logger interfaces and accept this type (or a
// test double) through them.
package logging
