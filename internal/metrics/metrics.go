package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	spawnsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "procrun",
		Name:      "spawns_total",
		Help:      "Total number of child processes spawned successfully.",
	})

	spawnFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "procrun",
		Name:      "spawn_failures_total",
		Help:      "Total number of failed spawn attempts.",
	})

	exitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procrun",
		Name:      "exits_total",
		Help:      "Total number of reaped child exits by outcome.",
	}, []string{"outcome"})

	openStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "procrun",
		Name:      "open_streams",
		Help:      "Number of currently open child stream adapters.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "procrun",
		Name:      "build_info",
		Help:      "Build metadata for the running procrun binary.",
	}, []string{"go_version", "vcs_revision", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(spawnsTotal, spawnFailuresTotal, exitsTotal, openStreams, buildInfo)
}

// Registry returns the Prometheus registry containing all procrun metrics.
func Registry() *prometheus.Registry {
	return registry
}

// ProcessSpawned records a successful spawn.
func ProcessSpawned() {
	spawnsTotal.Inc()
}

// SpawnFailed records a spawn attempt that failed before the child ran.
func SpawnFailed() {
	spawnFailuresTotal.Inc()
}

// ProcessExited records a reaped child exit, distinguishing signal deaths
// from normal exits.
func ProcessExited(signaled bool) {
	outcome := "exited"
	if signaled {
		outcome = "signaled"
	}
	exitsTotal.WithLabelValues(outcome).Inc()
}

// StreamOpened records a stream adapter being attached to a handle.
func StreamOpened() {
	openStreams.Inc()
}

// StreamClosed records a stream adapter being closed.
func StreamClosed() {
	openStreams.Dec()
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs_revision": "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
