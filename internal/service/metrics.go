package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	groupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pasanaku_groups_created_total",
		Help: "Number of groups created.",
	})
	contributionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pasanaku_contributions_total",
		Help: "Number of contributions recorded.",
	})
	payoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pasanaku_payouts_total",
		Help: "Number of payouts claimed.",
	})
)
