/*
Package config loads Dishpatch configuration with safe defaults.

Resolution order, later wins:

 1. Built-in defaults (the hub is operable with zero configuration)
 2. Optional YAML file (a missing file is fine, a malformed one is not)
 3. DISHPATCH_* environment variables

Durations accept Go duration syntax ("5s", "250ms"). An empty
database_url selects the embedded bolt event log and disables the live
transport, which is the zero-config development mode.
*/
package config
