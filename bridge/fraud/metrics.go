package fraud

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	meter = otel.Meter("fraud")

	challengesSubmittedCounter metric.Int64Counter
	challengesDefeatedCounter  metric.Int64Counter
	challengeTimeoutsCounter   metric.Int64Counter
)

func init() {
	var err error

	challengesSubmittedCounter, err = meter.Int64Counter(
		"fraud.challenges.submitted_total",
		metric.WithDescription("Total number of fraud challenges submitted"),
	)
	if err != nil {
		otel.Handle(err)
		challengesSubmittedCounter = noop.Int64Counter{}
	}

	challengesDefeatedCounter, err = meter.Int64Counter(
		"fraud.challenges.defeated_total",
		metric.WithDescription("Total number of fraud challenges defeated"),
	)
	if err != nil {
		otel.Handle(err)
		challengesDefeatedCounter = noop.Int64Counter{}
	}

	challengeTimeoutsCounter, err = meter.Int64Counter(
		"fraud.challenges.timed_out_total",
		metric.WithDescription("Total number of fraud challenges resolved by defeat timeout"),
	)
	if err != nil {
		otel.Handle(err)
		challengeTimeoutsCounter = noop.Int64Counter{}
	}
}
