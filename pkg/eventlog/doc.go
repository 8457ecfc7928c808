/*
Package eventlog is the durable side of the dual-write publish protocol:
an append-only store of every event, written before any transient
delivery is attempted.

Because the durable copy always exists first, losing the live channel
never loses an event; consumers replay missed records with List, in
creation order, batch by batch.

Two implementations:

  - PostgresStore: the production store, sharing one database with the
    LISTEN/NOTIFY transport so a single connection string configures
    both halves of the system
  - BoltStore: an embedded store for zero-configuration development and
    tests

The Janitor enforces the retention window, sweeping expired records on
a timer:

	store, _ := eventlog.NewBoltStore(dataDir)
	janitor := eventlog.NewJanitor(store, 7, 0) // 7 days, hourly sweep
	janitor.Start()
	defer janitor.Stop()

Appends are deliberately not retried by callers: the publish path logs
a failed append and proceeds to transient delivery, per the
storage-boundary contract.
*/
package eventlog
