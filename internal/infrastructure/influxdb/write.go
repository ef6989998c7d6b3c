package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/virtual-gateway/internal/thing"
)

// WriteThingMetrics records the numeric readings of the roster at one
// tick. The write is non-blocking; points are batched and sent
// asynchronously.
func (c *Client) WriteThingMetrics(at time.Time, things map[string]thing.Thing) {
	if !c.IsConnected() {
		return
	}

	for id, t := range things {
		switch {
		case t.Thermostat != nil:
			c.writePoint(id, at, map[string]interface{}{
				"temperature_c": t.Thermostat.CurrentTemperature,
				"target_c":      float64(t.Thermostat.TargetTemperature),
			})
		case t.Plug != nil:
			c.writePoint(id, at, map[string]interface{}{
				"power_watts": t.Plug.PowerConsumption,
			})
		case t.Ambient != nil:
			c.writePoint(id, at, map[string]interface{}{
				"humidity_pct": t.Ambient.Humidity,
				"co2_ppm":      t.Ambient.AirQualityCO2,
			})
		case t.Motion != nil:
			motion := 0.0
			if t.Motion.MotionDetected {
				motion = 1.0
			}
			c.writePoint(id, at, map[string]interface{}{
				"motion": motion,
			})
		}
	}
}

// writePoint writes one thing_metrics point tagged with the device ID.
func (c *Client) writePoint(thingID string, at time.Time, fields map[string]interface{}) {
	point := write.NewPoint(
		"thing_metrics",
		map[string]string{
			"thing_id": thingID,
		},
		fields,
		at,
	)
	c.writeAPI.WritePoint(point)
}
