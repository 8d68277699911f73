package instrumentation

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: apkship)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Enabled determines if instrumentation is active (default: false)
	// Set INSTRUMENTATION_ENABLED=true to record metrics and traces for a run
	Enabled bool

	// MetricsExporter specifies the metrics exporter type
	// Options: "prometheus", "otlp", "stdout" (default: "stdout")
	MetricsExporter string

	// TracingExporter specifies the tracing exporter type
	// Options: "otlp", "stdout", "none" (default: "none")
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint
	// Example: "localhost:4318" (without protocol prefix)
	OTLPEndpoint string

	// OTLPInsecure controls whether to use insecure HTTP for OTLP export
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0, default: 1.0)
	TraceSamplingRate float64

	// PushgatewayURL is the Prometheus Pushgateway the "prometheus" exporter
	// pushes to at shutdown. A CLI run is too short-lived to be scraped.
	PushgatewayURL string

	// PushJob is the Pushgateway job label (default: apkship)
	PushJob string
}

// DefaultConfig returns a Config with sensible defaults based on environment variables.
func DefaultConfig() Config {
	return Config{
		ServiceName:       getEnvOrDefault("OTEL_SERVICE_NAME", "apkship"),
		ServiceVersion:    "unknown",
		Enabled:           getEnvBoolOrDefault("INSTRUMENTATION_ENABLED", false),
		MetricsExporter:   getEnvOrDefault("METRICS_EXPORTER", ExporterStdout),
		TracingExporter:   getEnvOrDefault("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: getEnvFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 1.0),
		PushgatewayURL:    getEnvOrDefault("PROMETHEUS_PUSHGATEWAY_URL", ""),
		PushJob:           getEnvOrDefault("PROMETHEUS_PUSH_JOB", "apkship"),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	validMetricsExporters := map[string]bool{ExporterPrometheus: true, ExporterOTLP: true, ExporterStdout: true}
	if c.MetricsExporter != "" && !validMetricsExporters[c.MetricsExporter] {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	validTracingExporters := map[string]bool{ExporterOTLP: true, ExporterStdout: true, ExporterNone: true}
	if c.TracingExporter != "" && !validTracingExporters[c.TracingExporter] {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.TracingExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
	}
	if c.MetricsExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
	}
	if c.MetricsExporter == ExporterPrometheus && c.PushgatewayURL == "" {
		return fmt.Errorf("pushgateway URL is required when using prometheus metrics exporter; set PROMETHEUS_PUSHGATEWAY_URL")
	}

	return nil
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the boolean value of an environment variable or a default value.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvFloatOrDefault returns the float64 value of an environment variable or a default value.
func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// Constants for metric label values.
const (
	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// OAuth result values
	OAuthResultSuccess = "success"
	OAuthResultCached  = "cached"
	OAuthResultFailure = "failure"

	// Google service names
	ServiceDrive = "drive"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Operation types for Google API metrics.
const (
	OperationList   = "list"
	OperationCreate = "create"
	OperationUpdate = "update"
)
