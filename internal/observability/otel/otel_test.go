package otel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "disabled is always valid",
			cfg:     Config{Enabled: false, Protocol: "invalid", SampleRatio: -1},
			wantErr: false,
		},
		{
			name:    "valid otlphttp",
			cfg:     Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: 0.5},
			wantErr: false,
		},
		{
			name:    "valid otlpgrpc",
			cfg:     Config{Enabled: true, Protocol: ProtocolGRPC, SampleRatio: 1.0},
			wantErr: false,
		},
		{
			name:    "invalid protocol",
			cfg:     Config{Enabled: true, Protocol: "invalid", SampleRatio: 1.0},
			wantErr: true,
		},
		{
			name:    "sample ratio below 0",
			cfg:     Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: -0.1},
			wantErr: true,
		},
		{
			name:    "sample ratio above 1",
			cfg:     Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: 1.5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartSpan_Attributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx := WithHandle(context.Background(), InitWithProvider(tp))

	ctx, end := StartSpan(ctx, SpanScan,
		attribute.String("guardrail.command", "scan"),
		attribute.String("guardrail.op_id", "abc-123"),
	)
	SetAttributes(ctx, attribute.Int("guardrail.findings", 2))
	end(nil)

	_ = tp.ForceFlush(ctx)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Name() != SpanScan {
		t.Errorf("span name = %q, want %q", s.Name(), SpanScan)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", s.Status().Code)
	}

	got := map[string]attribute.Value{}
	for _, attr := range s.Attributes() {
		got[string(attr.Key)] = attr.Value
	}
	if got["guardrail.command"].AsString() != "scan" {
		t.Errorf("guardrail.command = %q", got["guardrail.command"].AsString())
	}
	if _, ok := got["guardrail.op_id"]; !ok {
		t.Error("missing attribute: guardrail.op_id")
	}
	if got["guardrail.findings"].AsInt64() != 2 {
		t.Errorf("guardrail.findings = %v", got["guardrail.findings"].AsInt64())
	}
}

func TestStartSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx := WithHandle(context.Background(), InitWithProvider(tp))

	_, end := StartSpan(ctx, SpanVerify)
	end(errors.New("something went wrong"))

	_ = tp.ForceFlush(ctx)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", s.Status().Code)
	}

	foundError := false
	for _, e := range s.Events() {
		if e.Name == "exception" {
			foundError = true
		}
	}
	if !foundError {
		t.Error("expected error event to be recorded")
	}
}

func TestStartSpan_Disabled(t *testing.T) {
	ctx := context.Background()
	got, end := StartSpan(ctx, SpanScan)
	if got != ctx {
		t.Error("disabled tracing should return ctx unchanged")
	}
	end(errors.New("ignored"))
	SetAttributes(ctx, attribute.Bool("x", true))
}

func TestContextRoundtrip(t *testing.T) {
	// Without handle
	ctx := context.Background()
	if h := From(ctx); h != nil {
		t.Error("expected nil handle from empty context")
	}

	// With handle
	handle := &Handle{}
	ctx = WithHandle(ctx, handle)
	if got := From(ctx); got != handle {
		t.Error("expected to retrieve the same handle from context")
	}
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		env  string
		want string
	}{
		{"flag wins", Config{Endpoint: "collector:4318", Protocol: ProtocolHTTP}, "http://env:4318", "collector:4318"},
		{"env fallback", Config{Protocol: ProtocolHTTP}, "http://env:4318", "http://env:4318"},
		{"http default", Config{Protocol: ProtocolHTTP}, "", "http://localhost:4318"},
		{"grpc default", Config{Protocol: ProtocolGRPC}, "", "localhost:4317"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.env)
			if got := resolveEndpoint(tt.cfg); got != tt.want {
				t.Errorf("resolveEndpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		ratio  float64
		prefix string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "ParentBased"},
	}

	for _, tt := range tests {
		if got := newSampler(tt.ratio).Description(); !strings.HasPrefix(got, tt.prefix) {
			t.Errorf("newSampler(%v) = %q, want prefix %q", tt.ratio, got, tt.prefix)
		}
	}
}

func TestConfig_ValidateReportsAll(t *testing.T) {
	err := Config{Enabled: true, Protocol: "zipkin", SampleRatio: 2}.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{`"zipkin"`, "sample ratio 2"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
