package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/promptcheck/check"
)

// WriteMetrics writes the report's gauges to path in the Prometheus text
// format, for the node_exporter textfile collector. The file is replaced
// atomically.
func WriteMetrics(path string, rep *check.Report, policy Policy) error {
	reg := prometheus.NewRegistry()

	gauge := func(name, help string, value float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "promptcheck",
			Name:      name,
			Help:      help,
		})
		g.Set(value)
		reg.MustRegister(g)
	}

	success := 0.0
	if Evaluate(rep, policy) == Success {
		success = 1
	}

	gauge("declared_templates", "Distinct prompt identifiers declared in the registry.", float64(rep.DeclaredCount))
	gauge("referenced_templates", "Distinct prompt identifiers referenced by consumers.", float64(rep.ReferencedCount))
	gauge("missing_templates", "Referenced prompt identifiers that are not declared.", float64(len(rep.Missing)))
	gauge("duplicate_templates", "Repeated prompt declarations.", float64(len(rep.Duplicates)))
	gauge("check_success", "Whether the last check succeeded (1) or failed (0).", success)

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
