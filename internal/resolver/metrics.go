package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeHit            = "hit"
	outcomeNotFound       = "not_found"
	outcomeTransportError = "transport_error"
)

var (
	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kubeschema_probes_total",
		Help: "Schema existence checks by outcome.",
	}, []string{"outcome"})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kubeschema_resolutions_total",
		Help: "Successful schema resolutions by source.",
	}, []string{"source"})

	noMatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kubeschema_no_match_total",
		Help: "Resolutions that exhausted every source without a hit.",
	})
)
