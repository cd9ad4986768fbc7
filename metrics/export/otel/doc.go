// Package otel binds engine metrics to OpenTelemetry observable instruments.
//
// Flow outcomes (bootstrap, authenticated, build) are exported as plain
// counters. The seven rejection causes collapse into one counter keyed by a
// "reason" attribute, and GetContext latency is reported as cumulative bucket
// gauges keyed by "le". The caller owns the MeterProvider.
package otel
