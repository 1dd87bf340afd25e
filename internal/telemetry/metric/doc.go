// Package metric provides Prometheus metrics for docmirror.
//
// docmirror is a batch tool, so metrics are not scraped over HTTP. They
// are collected in a private registry and can be written to a node
// exporter textfile after each sync run.
//
//   - prometheus.go: Registry with sync, download and storage metrics
//   - collector.go: catalog size collector
package metric
