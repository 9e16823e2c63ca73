// Package metrics exposes the engine's counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MrJamesThe3rd/feeflow/internal/transaction"
)

const namespace = "feeflow"

type Metrics struct {
	created            *prometheus.CounterVec
	verified           *prometheus.CounterVec
	ledgerLinks        *prometheus.CounterVec
	unreachable        *prometheus.CounterVec
	localShortCircuits *prometheus.CounterVec
	routingLookups     *prometheus.CounterVec
	statementLines     *prometheus.CounterVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		created: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_created_total",
				Help:      "Transactions created, by whether they were synthesized locally.",
			},
			[]string{"local"},
		),
		verified: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_verified_total",
				Help:      "Transactions brought to a terminal status.",
			},
			[]string{"status", "local"},
		),
		ledgerLinks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_links_total",
				Help:      "Ledger link attempts after a successful verification, by outcome.",
			},
			[]string{"outcome"},
		),
		unreachable: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_unreachable_total",
				Help:      "Store calls that fell back to degraded mode.",
			},
			[]string{"operation"},
		),
		localShortCircuits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "local_short_circuits_total",
				Help:      "Calls on local records answered without touching the store.",
			},
			[]string{"operation"},
		),
		routingLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routing_lookups_total",
				Help:      "Routing settings lookups, by cache result.",
			},
			[]string{"result"},
		),
		statementLines: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statement_lines_total",
				Help:      "Bank statement credit lines, by reconciliation outcome.",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) TransactionCreated(local bool) {
	m.created.WithLabelValues(strconv.FormatBool(local)).Inc()
}

func (m *Metrics) TransactionVerified(status transaction.Status, local bool) {
	m.verified.WithLabelValues(string(status), strconv.FormatBool(local)).Inc()
}

func (m *Metrics) LedgerLink(outcome string) {
	m.ledgerLinks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StoreUnreachable(operation string) {
	m.unreachable.WithLabelValues(operation).Inc()
}

func (m *Metrics) LocalShortCircuit(operation string) {
	m.localShortCircuits.WithLabelValues(operation).Inc()
}

func (m *Metrics) RoutingLookup(result string) {
	m.routingLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) StatementLine(outcome string) {
	m.statementLines.WithLabelValues(outcome).Inc()
}
