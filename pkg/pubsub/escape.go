package pubsub

import (
	"fmt"
	"strings"
)

// quoteIdentifier quotes a channel name for use in a transport command.
// Embedded double quotes are doubled so they cannot terminate the
// identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral quotes a payload as a string literal. Embedded single
// quotes are doubled so no payload character can terminate the outer
// quoting of the command. With standard_conforming_strings (the
// Postgres default) backslashes carry no special meaning, so doubling
// quotes is sufficient.
func quoteLiteral(payload string) string {
	return "'" + strings.ReplaceAll(payload, "'", "''") + "'"
}

// notifyCommand builds the NOTIFY command for a channel and payload
func notifyCommand(channel, payload string) string {
	return fmt.Sprintf("NOTIFY %s, %s", quoteIdentifier(channel), quoteLiteral(payload))
}

func listenCommand(channel string) string {
	return "LISTEN " + quoteIdentifier(channel)
}

func unlistenCommand(channel string) string {
	return "UNLISTEN " + quoteIdentifier(channel)
}
