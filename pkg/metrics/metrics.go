package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the service's Prometheus registry and instruments.
type Collector struct {
	registry *prometheus.Registry

	loansCreated      prometheus.Counter
	paymentsTotal     *prometheus.CounterVec
	amountCollected   *prometheus.CounterVec
	agreementsCreated prometheus.Counter
	agreementsBroken  prometheus.Counter
	lateFeeRefreshes  prometheus.Counter
	installmentsSwept prometheus.Counter
}

// New builds a Collector with every instrument registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		loansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cobranca_loans_created_total",
			Help: "Loans originated since process start.",
		}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cobranca_payments_total",
			Help: "Payments registered, by ledger entry type.",
		}, []string{"entry_type"}),
		amountCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cobranca_amount_collected_total",
			Help: "Money collected, by ledger entry type.",
		}, []string{"entry_type"}),
		agreementsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cobranca_agreements_created_total",
			Help: "Renegotiation agreements opened.",
		}),
		agreementsBroken: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cobranca_agreements_broken_total",
			Help: "Renegotiation agreements marked broken.",
		}),
		lateFeeRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cobranca_late_fee_refresh_runs_total",
			Help: "Scheduled late-fee refresh passes completed.",
		}),
		installmentsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cobranca_late_fee_installments_updated_total",
			Help: "Installments whose accrued late fee changed during a refresh.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		c.loansCreated,
		c.paymentsTotal,
		c.amountCollected,
		c.agreementsCreated,
		c.agreementsBroken,
		c.lateFeeRefreshes,
		c.installmentsSwept,
	)
	return c
}

// Handler exposes the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordLoanCreated() {
	c.loansCreated.Inc()
}

func (c *Collector) RecordPayment(entryType string, amount float64) {
	c.paymentsTotal.WithLabelValues(entryType).Inc()
	c.amountCollected.WithLabelValues(entryType).Add(amount)
}

func (c *Collector) RecordAgreementCreated() {
	c.agreementsCreated.Inc()
}

func (c *Collector) RecordAgreementBroken() {
	c.agreementsBroken.Inc()
}

func (c *Collector) RecordLateFeeRefresh(installmentsUpdated int) {
	c.lateFeeRefreshes.Inc()
	c.installmentsSwept.Add(float64(installmentsUpdated))
}
