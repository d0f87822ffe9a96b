// Package stats counts elements and geometry intents of an import.
//
// All methods are safe for concurrent use and for a nil *Statistics.
package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "osm3d"

type Statistics struct {
	registry *prometheus.Registry

	nodes          *prometheus.CounterVec
	ways           prometheus.Counter
	relations      prometheus.Counter
	unresolvedRefs prometheus.Counter
	intents        *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	failures       *prometheus.CounterVec
	warnings       *prometheus.CounterVec
}

func New() *Statistics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Statistics{
		registry: reg,
		nodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_total",
			Help:      "Nodes read, by whether they passed the bounding filter.",
		}, []string{"status"}),
		ways: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ways_total",
			Help:      "Finalized ways.",
		}),
		relations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_total",
			Help:      "Skipped relations.",
		}),
		unresolvedRefs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_refs_total",
			Help:      "Way node references dropped because the node was unknown or filtered.",
		}),
		intents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Geometry intents handed to the mesh builder.",
		}, []string{"role"}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_total",
			Help:      "Roles that produced no geometry (too few vertices).",
		}, []string{"role"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Roles whose synthesis or emission failed.",
		}, []string{"role"}),
		warnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Non-fatal problems, by kind.",
		}, []string{"kind"}),
	}
}

func (s *Statistics) AddNode(kept bool) {
	if s == nil {
		return
	}
	if kept {
		s.nodes.WithLabelValues("kept").Inc()
	} else {
		s.nodes.WithLabelValues("filtered").Inc()
	}
}

func (s *Statistics) AddWay() {
	if s != nil {
		s.ways.Inc()
	}
}

func (s *Statistics) AddRelation() {
	if s != nil {
		s.relations.Inc()
	}
}

func (s *Statistics) AddUnresolvedRef() {
	if s != nil {
		s.unresolvedRefs.Inc()
	}
}

func (s *Statistics) AddIntent(role string) {
	if s != nil {
		s.intents.WithLabelValues(role).Inc()
	}
}

func (s *Statistics) AddSkipped(role string) {
	if s != nil {
		s.skipped.WithLabelValues(role).Inc()
	}
}

func (s *Statistics) AddFailure(role string) {
	if s != nil {
		s.failures.WithLabelValues(role).Inc()
	}
}

func (s *Statistics) AddWarning(kind string) {
	if s != nil {
		s.warnings.WithLabelValues(kind).Inc()
	}
}

// WriteText writes all counters in the Prometheus text format.
func (s *Statistics) WriteText(w io.Writer) error {
	mfs, err := s.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Summary returns a single line like "nodes{kept}=12 ways=3 ...".
func (s *Statistics) Summary() string {
	if s == nil {
		return ""
	}
	mfs, err := s.registry.Gather()
	if err != nil {
		return err.Error()
	}
	var parts []string
	for _, mf := range mfs {
		name := strings.TrimSuffix(strings.TrimPrefix(mf.GetName(), namespace+"_"), "_total")
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetValue())
			}
			key := name
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			parts = append(parts, fmt.Sprintf("%s=%d", key, int64(m.GetCounter().GetValue())))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
