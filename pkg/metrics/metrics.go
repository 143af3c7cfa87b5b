// Package metrics defines the Prometheus collectors for the import and
// re-categorization paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paypay"

// Upload outcomes recorded on UploadsTotal.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
	StatusInvalid   = "invalid"
)

// Metrics holds every collector. A nil registerer creates unregistered collectors.
type Metrics struct {
	UploadsTotal              *prometheus.CounterVec
	RowsImported              prometheus.Counter
	RowsDuplicate             prometheus.Counter
	RowsSkipped               prometheus.Counter
	TransactionsRecategorized prometheus.Counter
	CategoriesInitialized     prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "uploads_total",
			Help:      "CSV uploads by final status.",
		}, []string{"status"}),
		RowsImported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_imported_total",
			Help:      "Transactions inserted from CSV uploads.",
		}),
		RowsDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_duplicate_total",
			Help:      "CSV rows skipped because the transaction already existed.",
		}),
		RowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_skipped_total",
			Help:      "CSV rows dropped for having too few columns.",
		}),
		TransactionsRecategorized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "categorization",
			Name:      "transactions_recategorized_total",
			Help:      "Transactions updated by re-categorization runs.",
		}),
		CategoriesInitialized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "categorization",
			Name:      "users_initialized_total",
			Help:      "Users whose categories were cloned from the system defaults.",
		}),
	}
}

// Nop returns unregistered collectors, for callers that do not export metrics.
func Nop() *Metrics {
	return New(nil)
}
