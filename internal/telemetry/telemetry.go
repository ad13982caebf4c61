// Package telemetry installs the global OpenTelemetry meter provider and
// exposes its instruments in the Prometheus text format.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds telemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	MetricsAddress string // listen address for /metrics, disabled when empty
}

// Provider owns the meter provider and the optional metrics listener.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *promclient.Registry
	server        *http.Server
	listener      net.Listener
}

// Init installs a global meter provider backed by a Prometheus exporter
// and starts serving /metrics when an address is configured.
func Init(cfg Config) (*Provider, error) {
	registry := promclient.NewRegistry()

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithNamespace(sanitizeName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	p := &Provider{
		meterProvider: meterProvider,
		registry:      registry,
	}

	if cfg.MetricsAddress == "" {
		return p, nil
	}

	ln, err := net.Listen("tcp", cfg.MetricsAddress)
	if err != nil {
		_ = meterProvider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.MetricsAddress, err)
	}
	p.listener = ln

	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	p.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()

	slog.Info("serving metrics", "address", ln.Addr().String())

	return p, nil
}

// Handler serves the registered metrics.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Addr returns the metrics listener address, or "" when metrics are not served.
func (p *Provider) Addr() string {
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// Shutdown stops the metrics listener and flushes the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown metrics server: %w", err))
		}
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
	}
	return errors.Join(errs...)
}

// sanitizeName converts a service name into a valid Prometheus namespace.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
