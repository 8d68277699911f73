package instrumentation

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	for _, key := range []string{"OTEL_SERVICE_NAME", "INSTRUMENTATION_ENABLED", "METRICS_EXPORTER", "TRACING_EXPORTER", "OTEL_TRACES_SAMPLER_ARG", "PROMETHEUS_PUSH_JOB"} {
		t.Setenv(key, "")
	}

	config := DefaultConfig()

	if config.ServiceName != "apkship" {
		t.Errorf("expected ServiceName 'apkship', got %q", config.ServiceName)
	}
	if config.Enabled {
		t.Error("expected Enabled to be false by default")
	}
	if config.MetricsExporter != ExporterStdout {
		t.Errorf("expected MetricsExporter 'stdout', got %q", config.MetricsExporter)
	}
	if config.TracingExporter != ExporterNone {
		t.Errorf("expected TracingExporter 'none', got %q", config.TracingExporter)
	}
	if config.TraceSamplingRate != 1.0 {
		t.Errorf("expected TraceSamplingRate 1.0, got %f", config.TraceSamplingRate)
	}
	if config.PushJob != "apkship" {
		t.Errorf("expected PushJob 'apkship', got %q", config.PushJob)
	}
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "test-service")
	t.Setenv("INSTRUMENTATION_ENABLED", "true")
	t.Setenv("METRICS_EXPORTER", "prometheus")
	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("PROMETHEUS_PUSHGATEWAY_URL", "http://pushgateway:9091")

	config := DefaultConfig()

	if config.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %q", config.ServiceName)
	}
	if !config.Enabled {
		t.Error("expected Enabled to be true")
	}
	if config.MetricsExporter != ExporterPrometheus {
		t.Errorf("expected MetricsExporter 'prometheus', got %q", config.MetricsExporter)
	}
	if config.TracingExporter != ExporterStdout {
		t.Errorf("expected TracingExporter 'stdout', got %q", config.TracingExporter)
	}
	if config.TraceSamplingRate != 0.5 {
		t.Errorf("expected TraceSamplingRate 0.5, got %f", config.TraceSamplingRate)
	}
	if config.PushgatewayURL != "http://pushgateway:9091" {
		t.Errorf("expected PushgatewayURL to be set, got %q", config.PushgatewayURL)
	}
}

func TestDefaultConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("INSTRUMENTATION_ENABLED", "not-a-bool")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "lots")

	config := DefaultConfig()

	if config.Enabled {
		t.Error("expected invalid bool to fall back to false")
	}
	if config.TraceSamplingRate != 1.0 {
		t.Errorf("expected invalid float to fall back to 1.0, got %f", config.TraceSamplingRate)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errContains string
	}{
		{
			name:   "valid stdout",
			config: Config{MetricsExporter: ExporterStdout, TracingExporter: ExporterNone},
		},
		{
			name: "valid prometheus with pushgateway",
			config: Config{
				MetricsExporter: ExporterPrometheus,
				PushgatewayURL:  "http://localhost:9091",
			},
		},
		{
			name: "valid otlp",
			config: Config{
				MetricsExporter: ExporterOTLP,
				TracingExporter: ExporterOTLP,
				OTLPEndpoint:    "localhost:4318",
			},
		},
		{
			name:        "invalid sampling rate negative",
			config:      Config{TraceSamplingRate: -0.5},
			errContains: "sampling rate",
		},
		{
			name:        "invalid sampling rate above 1",
			config:      Config{TraceSamplingRate: 1.5},
			errContains: "sampling rate",
		},
		{
			name:        "invalid metrics exporter",
			config:      Config{MetricsExporter: "invalid"},
			errContains: "invalid metrics exporter",
		},
		{
			name:        "invalid tracing exporter",
			config:      Config{TracingExporter: "invalid"},
			errContains: "invalid tracing exporter",
		},
		{
			name:        "otlp tracing without endpoint",
			config:      Config{TracingExporter: ExporterOTLP},
			errContains: "OTLP endpoint is required",
		},
		{
			name:        "otlp metrics without endpoint",
			config:      Config{MetricsExporter: ExporterOTLP},
			errContains: "OTLP endpoint is required",
		},
		{
			name:        "prometheus without pushgateway",
			config:      Config{MetricsExporter: ExporterPrometheus},
			errContains: "pushgateway URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.errContains)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
			}
		})
	}
}
