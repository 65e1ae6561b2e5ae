package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CrossVariantRepricedTotal counts line items repriced from an aggregated quantity.
	CrossVariantRepricedTotal prometheus.Counter
	// CrossVariantSkippedTotal counts line items left untouched, by reason.
	CrossVariantSkippedTotal *prometheus.CounterVec
	// CrossVariantGroupSize records the aggregated quantity used for tier selection.
	CrossVariantGroupSize prometheus.Histogram
	// CrossVariantDisabled is 1 once the processor has been disabled by an administrative context.
	CrossVariantDisabled prometheus.Gauge
	// GroupPurchaseBlockedTotal counts product groups removed for missing their minimum quantity.
	GroupPurchaseBlockedTotal prometheus.Counter
	// SettingsLookupTotal counts settings lookups by outcome.
	SettingsLookupTotal *prometheus.CounterVec
	// BreakerState is the circuit state per guarded dependency: 0 closed, 1 open, 2 half-open.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitionsTotal counts circuit state changes.
	BreakerTransitionsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CrossVariantRepricedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cross_variant_repriced_total",
			Help:      "Line items repriced from the combined quantity of their variants.",
		})
		CrossVariantSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cross_variant_skipped_total",
			Help:      "Line items skipped by the cross-variant processor.",
		}, []string{"reason"})
		CrossVariantGroupSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cross_variant_group_quantity",
			Help:      "Aggregated quantity of repriced variant groups.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		})
		CrossVariantDisabled = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cross_variant_disabled",
			Help:      "Set to 1 once an administrative context disabled cross-variant pricing.",
		})
		GroupPurchaseBlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_purchase_blocked_total",
			Help:      "Product groups removed from carts for missing the group purchase minimum.",
		})
		SettingsLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_lookup_total",
			Help:      "Settings lookups by result.",
		}, []string{"result"})
		BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0=closed, 1=open, 2=half-open.",
		}, []string{"target"})
		BreakerTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transition_total",
			Help:      "Circuit breaker state transitions.",
		}, []string{"target", "from", "to"})

		mustRegisterCollector(reg, CrossVariantRepricedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CrossVariantRepricedTotal = v
			}
		})
		mustRegisterCollector(reg, CrossVariantSkippedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CrossVariantSkippedTotal = v
			}
		})
		mustRegisterCollector(reg, CrossVariantGroupSize, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				CrossVariantGroupSize = v
			}
		})
		mustRegisterCollector(reg, CrossVariantDisabled, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				CrossVariantDisabled = v
			}
		})
		mustRegisterCollector(reg, GroupPurchaseBlockedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				GroupPurchaseBlockedTotal = v
			}
		})
		mustRegisterCollector(reg, SettingsLookupTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettingsLookupTotal = v
			}
		})
		mustRegisterCollector(reg, BreakerState, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.GaugeVec); ok {
				BreakerState = v
			}
		})
		mustRegisterCollector(reg, BreakerTransitionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BreakerTransitionsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
