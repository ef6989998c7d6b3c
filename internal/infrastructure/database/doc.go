// Package database wraps the SQLite connection used for tick history.
//
// The gateway defaults to an in-memory database so a fresh start always
// begins with an empty history; pointing Path at a file keeps readings
// across restarts. Schema setup lives with the consumer (history
// package), not here.
package database
