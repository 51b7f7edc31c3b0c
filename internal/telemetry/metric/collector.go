package metric

import "github.com/prometheus/client_golang/prometheus"

// SessionSnapshot is the live session state read on each scrape.
type SessionSnapshot struct {
	State        int
	StateName    string
	Generation   uint64
	Revision     uint64
	KeyCount     int
	Registered   bool
	BackoffTries int
}

// Collector reports live session state without the session pushing updates.
type Collector struct {
	source func() SessionSnapshot

	state      *prometheus.Desc
	generation *prometheus.Desc
	revision   *prometheus.Desc
	keys       *prometheus.Desc
	registered *prometheus.Desc
	backoff    *prometheus.Desc
}

// NewCollector creates a collector that calls source on every scrape.
func NewCollector(source func() SessionSnapshot) *Collector {
	return &Collector{
		source: source,
		state: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "session", "state"),
			"Current connection state (1 for the active state).",
			[]string{"state"}, nil),
		generation: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "session", "connection_generation"),
			"Number of physical connections opened by this process.",
			nil, nil),
		revision: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "credentials", "revision"),
			"Revision of the live credentials.",
			nil, nil),
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "credentials", "keys"),
			"Key entries held by the live credentials.",
			nil, nil),
		registered: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "credentials", "registered"),
			"Whether the device is paired (1) or awaiting pairing (0).",
			nil, nil),
		backoff: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "session", "backoff_attempts"),
			"Consecutive failed connection attempts.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.generation
	ch <- c.revision
	ch <- c.keys
	ch <- c.registered
	ch <- c.backoff
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source()
	ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, 1, s.StateName)
	ch <- prometheus.MustNewConstMetric(c.generation, prometheus.CounterValue, float64(s.Generation))
	ch <- prometheus.MustNewConstMetric(c.revision, prometheus.GaugeValue, float64(s.Revision))
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(s.KeyCount))
	registered := 0.0
	if s.Registered {
		registered = 1
	}
	ch <- prometheus.MustNewConstMetric(c.registered, prometheus.GaugeValue, registered)
	ch <- prometheus.MustNewConstMetric(c.backoff, prometheus.GaugeValue, float64(s.BackoffTries))
}
