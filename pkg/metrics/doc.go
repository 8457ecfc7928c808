/*
Package metrics exposes Prometheus collectors for Dishpatch.

All collectors are package-level and registered at init; components
update them directly. Handler() serves the scrape endpoint, mounted at
/metrics by pkg/api.

The one metric that should page an operator is dishpatch_reconnect_gaveup:
it flips to 1 when the reconnection controller exhausts its bounded
attempts; every other failure mode is self-healing or recoverable via
the durable event log.
*/
package metrics
