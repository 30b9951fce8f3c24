package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	linksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_links_created_total",
			Help: "Tracking links created, by id origin (slug, random) and insert path (full, base)",
		},
		[]string{"origin", "insert"},
	)

	locationsCapturedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locations_captured_total",
			Help: "Stored location captures, by how the phone number was resolved",
		},
		[]string{"resolved"},
	)

	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Administrator login attempts by result",
		},
		[]string{"result"},
	)

	schemaColumnsAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schema_columns_added_total",
			Help: "Extended columns added to tracking_links by migration",
		},
	)
)
