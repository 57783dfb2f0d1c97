package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_NoopWhenDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero config", Config{}},
		{"enabled without endpoint", Config{Enabled: true}},
		{"endpoint but disabled", Config{Endpoint: "http://localhost:4318"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), "sense-test", tt.cfg)
			if err != nil {
				t.Fatalf("Setup() error = %v", err)
			}
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if err := shutdown(ctx); err != nil {
				t.Fatalf("noop shutdown error = %v", err)
			}
		})
	}
}

func TestSetup_CreatesProvider(t *testing.T) {
	// Non-routable address so nothing is exported.
	shutdown, err := Setup(context.Background(), "sense-test", Config{Enabled: true, Endpoint: "http://192.0.2.1:4318"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}
}

func TestEnd_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	_, ok := tp.Tracer("t").Start(context.Background(), "ok")
	End(ok, nil)
	_, failed := tp.Tracer("t").Start(context.Background(), "failed")
	End(failed, errors.New("boom"))

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Status().Code != codes.Unset {
		t.Errorf("ok span status = %v", spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "boom" {
		t.Errorf("failed span status = %v", spans[1].Status())
	}
	if len(spans[1].Events()) == 0 {
		t.Error("expected an exception event on the failed span")
	}
}
