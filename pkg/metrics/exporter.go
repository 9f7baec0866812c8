package metrics

import (
	"net/http"
	"strconv"

	"com.aiac.relay/pkg/config"
	"contrib.go.opencensus.io/exporter/prometheus"
	"github.com/apex/log"
)

// StartMetricsExporter serves every registered opencensus view as a
// Prometheus scrape endpoint on /metrics.
func StartMetricsExporter(cfg config.MetricsConfig) (*prometheus.Exporter, error) {
	logger := log.WithField("module", "metrics")

	pe, err := prometheus.NewExporter(prometheus.Options{
		Namespace: cfg.Namespace,
		OnError: func(err error) {
			logger.Warnf("prometheus exporter: %v", err)
		},
	})
	if err != nil {
		return nil, err
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", pe)
		addr := ":" + strconv.Itoa(cfg.Port)
		logger.Infof("Serving metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Fatalf("Failed to run Prometheus scrape endpoint: %v", err)
		}
	}()

	return pe, nil
}
