/*
Package dispatcher bridges the transport and the internal broker.

The hub's receive loop hands every inbound notification to Dispatch,
which decodes the payload into its event variant and re-emits it on the
process-wide broker for fan-out consumers. Undecodable payloads are
counted, logged, and dropped; one bad payload never affects the
notifications behind it.
*/
package dispatcher
