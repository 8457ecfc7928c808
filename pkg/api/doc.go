/*
Package api serves the operational HTTP endpoints: /health (liveness),
/ready (transport connected and event log reachable), and /metrics
(Prometheus scrape).

A hub that exhausted its reconnection attempts stays not-ready until
the process restarts, which is what external supervision should alert
on.
*/
package api
