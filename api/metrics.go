package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName          = "kanban-api/api"
	commandsRoute       = "/api/commands"
	commandsMetricsLine = "commands.request.metrics"
)

// commandRequestMetrics collects timings and outcomes of one command batch and
// emits them as a log line and a server span.
type commandRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	authDuration   time.Duration
	decodeDuration time.Duration
	applyDuration  time.Duration
	received       int
	applied        int
	duplicates     int
	noops          int
	errorStage     string
}

func newCommandRequestMetrics(ctx context.Context, logger *log.Logger) (*commandRequestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "POST "+commandsRoute, trace.WithSpanKind(trace.SpanKindServer))
	return &commandRequestMetrics{logger: logger, span: span, start: time.Now()}, ctx
}

func (m *commandRequestMetrics) ObserveAuth(d time.Duration)   { m.authDuration = positive(d) }
func (m *commandRequestMetrics) ObserveDecode(d time.Duration) { m.decodeDuration = positive(d) }
func (m *commandRequestMetrics) ObserveApply(d time.Duration)  { m.applyDuration = positive(d) }

func (m *commandRequestMetrics) SetReceived(n int) { m.received = n }

// Count tallies one command result by status.
func (m *commandRequestMetrics) Count(status string) {
	switch status {
	case statusOK:
		m.applied++
	case statusDuplicate:
		m.duplicates++
	default:
		m.noops++
	}
}

func (m *commandRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *commandRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	total := time.Since(m.start)
	attrs := []attribute.KeyValue{
		attribute.String("http.route", commandsRoute),
		attribute.Int("http.response.status_code", status),
		attribute.Int("kanban.commands.received", m.received),
		attribute.Int("kanban.commands.applied", m.applied),
		attribute.Int("kanban.commands.duplicates", m.duplicates),
		attribute.Int("kanban.commands.noops", m.noops),
		attribute.Float64("kanban.commands.total_ms", durationToMillis(total)),
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("kanban.commands.error_stage", m.errorStage))
	}
	if m.span != nil {
		m.span.SetAttributes(attrs...)
		if err != nil {
			m.span.RecordError(err)
		}
		if err != nil || status >= http.StatusInternalServerError {
			msg := http.StatusText(status)
			if err != nil {
				msg = err.Error()
			}
			m.span.SetStatus(codes.Error, msg)
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"route":      commandsRoute,
		"status":     status,
		"total_ms":   durationToMillis(total),
		"received":   m.received,
		"applied":    m.applied,
		"duplicates": m.duplicates,
		"noops":      m.noops,
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.decodeDuration > 0 {
		fields["decode_ms"] = durationToMillis(m.decodeDuration)
	}
	if m.applyDuration > 0 {
		fields["apply_ms"] = durationToMillis(m.applyDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Log(severityForStatus(status, err), commandsMetricsLine)
}

func severityForStatus(status int, err error) log.Level {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return log.ErrorLevel
	case status >= http.StatusBadRequest:
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func positive(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
