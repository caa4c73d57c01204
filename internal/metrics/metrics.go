// Package metrics declares the Prometheus instruments exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GiftsReserved counts successful gift reservations, including
	// overwrites of an existing reservation.
	GiftsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_gifts_reserved_total",
		Help: "Number of successful gift reservations.",
	})

	// ReceiptsSubmitted counts receipts accepted for review.
	ReceiptsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_receipts_submitted_total",
		Help: "Number of receipts uploaded and stored.",
	})

	// ReceiptsDecided counts admin decisions, labelled by outcome
	// ("APPROVED" or "REJECTED").
	ReceiptsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_receipts_decided_total",
		Help: "Number of receipt decisions by outcome.",
	}, []string{"decision"})
)
