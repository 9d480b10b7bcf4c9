package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	namespaceRoot = "relayer"
)

var (
	BestRelayedHeaderGauge   *Int64SyncGauge
	BestAvailableHeaderGauge *Int64SyncGauge
	LaneUndeliveredGauge     *Int64SyncGauge
	LaneUnconfirmedGauge     *Int64SyncGauge
	SubmissionsCounter       api.Int64Counter
	SubmissionAttempts       api.Int64Histogram

	meter = otel.Meter(name)
)

func InitializeMetrics() error {
	var err error

	// create the instrument "relayer.header.best_relayed"
	name := fmt.Sprintf("%s.header.best_relayed", namespaceRoot)
	if BestRelayedHeaderGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("number of the best source header verified by the target chain"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.header.best_available"
	name = fmt.Sprintf("%s.header.best_available", namespaceRoot)
	if BestAvailableHeaderGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("number of the latest finalized header of the source chain"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.lane.undelivered"
	name = fmt.Sprintf("%s.lane.undelivered", namespaceRoot)
	if LaneUndeliveredGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("number of messages generated but not delivered yet"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.lane.unconfirmed"
	name = fmt.Sprintf("%s.lane.unconfirmed", namespaceRoot)
	if LaneUnconfirmedGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("number of messages delivered but not confirmed yet"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.submissions"
	name = fmt.Sprintf("%s.submissions", namespaceRoot)
	if SubmissionsCounter, err = meter.Int64Counter(
		name,
		api.WithUnit("1"),
		api.WithDescription("number of resolved submissions by kind and outcome"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.submission.attempts"
	name = fmt.Sprintf("%s.submission.attempts", namespaceRoot)
	if SubmissionAttempts, err = meter.Int64Histogram(
		name,
		api.WithUnit("1"),
		api.WithDescription("number of attempts a submission took until it was resolved"),
		api.WithExplicitBucketBoundaries(1, 2, 3, 5, 8, 13),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	return nil
}

func NewPrometheusExporter(addr string) (*prometheus.Exporter, error) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger := log.GetLogger().WithModule("telemetry")
			logger.Fatal("Prometheus exporter server failed", err)
		}
	}()

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create the Prometheus Exporter: %v", err)
	}

	return exporter, nil
}

// ServePrometheus installs a meter provider exporting the relayer metrics on addr/metrics.
// It overrides the provider installed by SetupOTelSDK.
func ServePrometheus(addr string) (shutdown func(context.Context) error, err error) {
	exporter, err := NewPrometheusExporter(addr)
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	if err := InitializeMetrics(); err != nil {
		return nil, err
	}
	return provider.Shutdown, nil
}
