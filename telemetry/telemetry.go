// Package telemetry publishes verification outcomes to InfluxDB,
// grounded on the teacher's metrics/influxdb exporter and using
// influxdata/influxdb-client-go/v2 directly rather than the teacher's
// older line-protocol writer, since v2's Writer API already does
// async batching.
package telemetry

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Publisher batches verification-outcome points and writes them
// asynchronously to one InfluxDB bucket.
type Publisher struct {
	client influxdb2.Client
	writer api.WriteAPI
}

func NewPublisher(url, token, org, bucket string) *Publisher {
	client := influxdb2.NewClient(url, token)
	return &Publisher{
		client: client,
		writer: client.WriteAPI(org, bucket),
	}
}

// RecordOutcome emits one point per Process call: measurement
// "uptane_verify", tagged by ECU/hardware id and result, fielded by
// elapsed verification time.
func (p *Publisher) RecordOutcome(ecuID, hwID, result string, elapsed time.Duration, success bool) {
	point := influxdb2.NewPoint(
		"uptane_verify",
		map[string]string{
			"ecu_id":      ecuID,
			"hardware_id": hwID,
			"result":      result,
		},
		map[string]interface{}{
			"elapsed_ms": float64(elapsed.Microseconds()) / 1000.0,
			"success":    success,
		},
		timeNow(),
	)
	p.writer.WritePoint(point)
}

func (p *Publisher) Flush() {
	p.writer.Flush()
}

func (p *Publisher) Close(ctx context.Context) {
	p.writer.Flush()
	p.client.Close()
}

// timeNow is the single call site for a wall-clock read in this
// package, isolated so tests can stub it.
var timeNow = time.Now
