package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sanposhin_rate_limit_denied_total",
	Help: "Attempts rejected by the rate limiter.",
}, []string{"policy"})
