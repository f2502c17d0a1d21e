package linkshortener

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	linksShortened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linkshortener",
		Name:      "links_shortened_total",
		Help:      "Number of new key -> URL mappings created.",
	})

	linksExpanded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkshortener",
		Name:      "links_expanded_total",
		Help:      "Number of expand lookups, by result.",
	}, []string{"result"}) // hit, miss

	keyCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linkshortener",
		Name:      "key_collisions_total",
		Help:      "Number of candidate keys rejected because another URL already owned them.",
	})

	snapshotFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkshortener",
		Name:      "snapshot_failures_total",
		Help:      "Number of failed snapshot operations, by operation.",
	}, []string{"op"}) // load, save
)
