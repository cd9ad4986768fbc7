// Package prometheus exposes engine metrics through client_golang.
//
// [NewCollector] adapts an [instantauth.Engine] (or any source with the same
// two methods) to a prometheus.Collector that reads one snapshot per scrape.
// [Exporter] wraps the collector in a private registry and serves it with
// promhttp, so nothing is registered globally unless the caller does it.
package prometheus
