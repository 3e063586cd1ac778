// Package metrics exposes the league's Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the service layer.
type Recorder interface {
	RecordCredit(strategy, outcome string)
	RecordCreditFallback()
	RecordVote(voteType string)
	RecordChatMessage()
	RecordResultSet(result string, winners int)
	SubscriptionOpened(kind string)
	SubscriptionClosed(kind string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	credits       *prometheus.CounterVec
	fallbacks     prometheus.Counter
	votes         *prometheus.CounterVec
	chatMessages  prometheus.Counter
	resultsSet    *prometheus.CounterVec
	winners       prometheus.Histogram
	subscriptions *prometheus.GaugeVec
}

// NewCollector creates a Collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "league_point_credits_total",
			Help: "Point credits by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "league_point_credit_fallbacks_total",
			Help: "Credits that fell back to the read-modify-write strategy.",
		}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "league_votes_cast_total",
			Help: "Votes cast by prediction.",
		}, []string{"vote_type"}),
		chatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "league_chat_messages_total",
			Help: "Chat messages accepted.",
		}),
		resultsSet: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "league_match_results_set_total",
			Help: "Admin results recorded by outcome.",
		}, []string{"result"}),
		winners: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "league_result_winners",
			Help:    "Winning voters per recorded result.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "league_live_subscriptions",
			Help: "Active live subscriptions by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.credits,
		c.fallbacks,
		c.votes,
		c.chatMessages,
		c.resultsSet,
		c.winners,
		c.subscriptions,
	)

	return c
}

func (c *Collector) RecordCredit(strategy, outcome string) {
	c.credits.WithLabelValues(strategy, outcome).Inc()
}

func (c *Collector) RecordCreditFallback() {
	c.fallbacks.Inc()
}

func (c *Collector) RecordVote(voteType string) {
	c.votes.WithLabelValues(voteType).Inc()
}

func (c *Collector) RecordChatMessage() {
	c.chatMessages.Inc()
}

func (c *Collector) RecordResultSet(result string, winners int) {
	c.resultsSet.WithLabelValues(result).Inc()
	c.winners.Observe(float64(winners))
}

func (c *Collector) SubscriptionOpened(kind string) {
	c.subscriptions.WithLabelValues(kind).Inc()
}

func (c *Collector) SubscriptionClosed(kind string) {
	c.subscriptions.WithLabelValues(kind).Dec()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCredit(string, string) {}
func (Nop) RecordCreditFallback()       {}
func (Nop) RecordVote(string)           {}
func (Nop) RecordChatMessage()          {}
func (Nop) RecordResultSet(string, int) {}
func (Nop) SubscriptionOpened(string)   {}
func (Nop) SubscriptionClosed(string)   {}
