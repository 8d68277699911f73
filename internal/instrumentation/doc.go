// Package instrumentation provides OpenTelemetry metrics and tracing for apkship.
//
// Instrumentation is off by default; set INSTRUMENTATION_ENABLED=true to
// record a run.
//
// # Metrics
//
//   - google_api_operations_total / google_api_operation_duration_seconds:
//     Drive calls by operation (list, create, update) and status
//   - oauth_auth_total: authorizations by result (cached, success, failure)
//   - build_runs_total / build_duration_seconds: build subprocess runs by status
//   - uploads_total / upload_bytes_total: artifact uploads by status and mode
//
// # Exporters
//
// METRICS_EXPORTER selects "stdout" (default), "otlp" (OTEL_EXPORTER_OTLP_ENDPOINT)
// or "prometheus". A CLI run ends before anything could scrape it, so the
// prometheus exporter collects into a private registry that is pushed to
// PROMETHEUS_PUSHGATEWAY_URL when the provider shuts down.
//
// TRACING_EXPORTER selects "none" (default), "stdout" or "otlp".
//
// # Tracing
//
// Spans are created for authorization, each Drive call
// (google.drive.<operation>), the build run and the publish sequence.
package instrumentation
