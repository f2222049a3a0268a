package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus/collectors"
)

var runtimeOnce sync.Once //nolint:gochecknoglobals // guards one-time collector registration

// RegisterRuntimeCollectors adds Go runtime and process metrics to the
// custom registry. Only the long-running web host calls it; repeated calls are no-ops.
func RegisterRuntimeCollectors() {
	runtimeOnce.Do(func() {
		customRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}
