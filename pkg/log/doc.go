/*
Package log provides structured logging for Dishpatch using zerolog.

Call Init once at startup, then build child loggers with the With*
functions:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("pubsub")
	log.WithChannel(logger, "order_created").Warn().Msg("send failed")

Child logger helpers attach the fields every Dishpatch log line is
expected to carry where applicable: component, restaurant_id, channel.
Console output (human-readable) is the default; JSON output is intended
for production aggregation.
*/
package log
