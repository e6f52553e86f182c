package coordinator

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	meter = otel.Meter("coordinator")

	heartbeatRequestsCounter metric.Int64Counter
	sweepProposalsCounter    metric.Int64Counter
)

func init() {
	var err error

	heartbeatRequestsCounter, err = meter.Int64Counter(
		"coordinator.heartbeat_requests.submitted_total",
		metric.WithDescription("Total number of heartbeat requests submitted"),
	)
	if err != nil {
		otel.Handle(err)
		heartbeatRequestsCounter = noop.Int64Counter{}
	}

	sweepProposalsCounter, err = meter.Int64Counter(
		"coordinator.deposit_sweep_proposals.submitted_total",
		metric.WithDescription("Total number of deposit sweep proposals submitted"),
	)
	if err != nil {
		otel.Handle(err)
		sweepProposalsCounter = noop.Int64Counter{}
	}
}
