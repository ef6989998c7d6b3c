package history

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/virtual-gateway/internal/infrastructure/database"
	"github.com/nerrad567/virtual-gateway/internal/thing"
)

// schema is created on Init. One row per published tick; every column is
// a flattened reading so aggregation stays plain SQL.
const schema = `
CREATE TABLE IF NOT EXISTS tick_history (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at        TEXT NOT NULL,
	indoor_temperature REAL NOT NULL,
	target_temperature INTEGER NOT NULL,
	thermostat_mode    TEXT NOT NULL,
	lamp_on            INTEGER NOT NULL,
	plug_on            INTEGER NOT NULL,
	plug_power         REAL NOT NULL,
	motion             INTEGER NOT NULL,
	humidity           REAL NOT NULL,
	co2                REAL NOT NULL,
	window_open        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tick_history_recorded_at ON tick_history (recorded_at);
`

// Recorder writes one tick_history row per published tick.
type Recorder struct {
	db *database.DB
}

// NewRecorder creates a recorder over an open database.
func NewRecorder(db *database.DB) *Recorder {
	return &Recorder{db: db}
}

// Init creates the tick history schema if it does not exist.
func (r *Recorder) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating tick history schema: %w", err)
	}
	return nil
}

// RecordTick flattens the roster into one history row. Missing devices
// record zero values rather than failing; a partial roster is a gateway
// fault the recorder should not amplify.
func (r *Recorder) RecordTick(ctx context.Context, at time.Time, things map[string]thing.Thing) error {
	var (
		indoor     float64
		target     int
		mode       thing.ThermostatMode
		lampOn     bool
		plugOn     bool
		plugPower  float64
		motion     bool
		humidity   float64
		co2        float64
		windowOpen bool
	)

	for _, t := range things {
		switch {
		case t.Thermostat != nil:
			indoor = t.Thermostat.CurrentTemperature
			target = t.Thermostat.TargetTemperature
			mode = t.Thermostat.Mode
		case t.Lamp != nil:
			lampOn = t.Lamp.Status == thing.SwitchOn
		case t.Plug != nil:
			plugOn = t.Plug.Status == thing.SwitchOn
			plugPower = t.Plug.PowerConsumption
		case t.Motion != nil:
			motion = t.Motion.MotionDetected
		case t.Ambient != nil:
			humidity = t.Ambient.Humidity
			co2 = t.Ambient.AirQualityCO2
		case t.Window != nil:
			windowOpen = t.Window.Status == thing.WindowOpen
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tick_history
		 (recorded_at, indoor_temperature, target_temperature, thermostat_mode,
		  lamp_on, plug_on, plug_power, motion, humidity, co2, window_open)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339),
		indoor, target, string(mode),
		boolToInt(lampOn), boolToInt(plugOn), plugPower,
		boolToInt(motion), humidity, co2, boolToInt(windowOpen),
	)
	if err != nil {
		return fmt.Errorf("inserting tick history: %w", err)
	}
	return nil
}

// Prune deletes history rows older than the given retention window.
func (r *Recorder) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM tick_history WHERE recorded_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting tick history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
