// Package influxdb writes hubsync telemetry to InfluxDB v2.
//
// It wraps influxdb-client-go's non-blocking write API: points are batched
// according to the influxdb config section (batch_size, flush_interval) and
// asynchronous write failures are delivered to the SetOnError callback.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePoint("device_state",
//	    map[string]string{"device_id": "30"},
//	    map[string]any{"current_temperature": 21.1},
//	    time.Now())
package influxdb
