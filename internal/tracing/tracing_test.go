package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/muurk/devicechat/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	tp := otel.GetTracerProvider()
	if _, ok := tp.(noop.TracerProvider); !ok {
		t.Errorf("expected noop provider, got %T", tp)
	}
}

func TestSetupStdout(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracingConfig{Enabled: true, Exporter: "stdout"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("expected sdk provider, got %T", otel.GetTracerProvider())
	}
}

func TestSetupEmptyExporter(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracingConfig{Enabled: true})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	if _, ok := otel.GetTracerProvider().(noop.TracerProvider); !ok {
		t.Errorf("expected noop provider for empty exporter, got %T", otel.GetTracerProvider())
	}
}

func TestSetupUnsupportedExporter(t *testing.T) {
	_, err := Setup(context.Background(), config.TracingConfig{Enabled: true, Exporter: "zipkin"})
	if err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	_, succeeded := StartSpan(context.Background(), "chat.send")
	SetOK(succeeded)
	succeeded.End()

	_, failed := StartSpan(context.Background(), "chat.send")
	failed.SetAttributes(StringAttr("chat.model", "gemini-2.5-flash"), IntAttr("chat.history", 2))
	RecordError(failed, errors.New("boom"))
	failed.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("first span status = %v, want Ok", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("second span status = %v, want Error", spans[1].Status().Code)
	}
	if len(spans[1].Attributes()) != 2 {
		t.Errorf("second span attributes = %v, want 2", spans[1].Attributes())
	}
}
