package engine

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/sglre6355/jukebox/music_player"

type metrics struct {
	songsStarted   metric.Int64Counter
	songsDropped   metric.Int64Counter
	streamFailures metric.Int64Counter
	sessionsOpened metric.Int64Counter
	sessionsReaped metric.Int64Counter
	activeSessions metric.Int64UpDownCounter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	var m metrics
	var err error
	if m.songsStarted, err = meter.Int64Counter(
		"playback_songs_started_total",
		metric.WithDescription("Songs that started streaming"),
		metric.WithUnit("{song}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create songs started counter: %w", err)
	}
	if m.songsDropped, err = meter.Int64Counter(
		"playback_songs_dropped_total",
		metric.WithDescription("Songs dropped after every stream provider failed"),
		metric.WithUnit("{song}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create songs dropped counter: %w", err)
	}
	if m.streamFailures, err = meter.Int64Counter(
		"playback_stream_failures_total",
		metric.WithDescription("Stream provider failures by provider"),
		metric.WithUnit("{failure}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stream failures counter: %w", err)
	}
	if m.sessionsOpened, err = meter.Int64Counter(
		"playback_sessions_opened_total",
		metric.WithDescription("Voice transport sessions opened"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sessions opened counter: %w", err)
	}
	if m.sessionsReaped, err = meter.Int64Counter(
		"playback_sessions_reaped_total",
		metric.WithDescription("Voice transport sessions closed by the idle reaper"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sessions reaped counter: %w", err)
	}
	if m.activeSessions, err = meter.Int64UpDownCounter(
		"playback_active_sessions",
		metric.WithDescription("Voice transport sessions currently open"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active sessions gauge: %w", err)
	}
	return &m, nil
}

func providerAttr(name string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("provider", name))
}
