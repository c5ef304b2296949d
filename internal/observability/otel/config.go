// Package otel wires OpenTelemetry tracing. Off unless --otel is given.
package otel

import (
	"errors"
	"fmt"
)

// ServiceName is the default resource and tracer name
const ServiceName = "guardrail"

const (
	ProtocolHTTP = "otlphttp"
	ProtocolGRPC = "otlpgrpc"
)

// Config for the tracer provider. Endpoint falls back to
// OTEL_EXPORTER_OTLP_ENDPOINT, then the protocol's localhost default.
type Config struct {
	Enabled     bool
	Endpoint    string
	Protocol    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

// DefaultConfig has tracing disabled.
func DefaultConfig() Config {
	return Config{
		Protocol:    ProtocolHTTP,
		ServiceName: ServiceName,
		SampleRatio: 1.0,
	}
}

// Validate reports every bad field. A disabled config is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolGRPC {
		errs = append(errs, fmt.Errorf("otel: unknown protocol %q (want %s or %s)", c.Protocol, ProtocolHTTP, ProtocolGRPC))
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("otel: sample ratio %v outside [0, 1]", c.SampleRatio))
	}
	return errors.Join(errs...)
}
