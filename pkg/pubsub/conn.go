package pubsub

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Notification is an inbound transport message: the channel it arrived
// on and its raw payload
type Notification struct {
	Channel string
	Payload string
}

// Conn is the subset of transport connection behavior the hub needs.
// The hub owns two of these: one dedicated to listening, one to
// notifying. They fail independently.
type Conn interface {
	// Exec runs a transport command (LISTEN, UNLISTEN, NOTIFY)
	Exec(ctx context.Context, command string) error

	// WaitForNotification blocks until a notification arrives, the
	// context is canceled, or the connection fails
	WaitForNotification(ctx context.Context) (*Notification, error)

	// Close tears down the connection
	Close(ctx context.Context) error
}

// Dialer opens transport connections
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// PGDialer dials Postgres connections via pgx
type PGDialer struct {
	URL string
}

// Dial opens a single Postgres connection
func (d *PGDialer) Dial(ctx context.Context) (Conn, error) {
	conn, err := pgx.Connect(ctx, d.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &pgConn{conn: conn}, nil
}

// pgConn adapts *pgx.Conn to the Conn interface
type pgConn struct {
	conn *pgx.Conn
}

func (c *pgConn) Exec(ctx context.Context, command string) error {
	_, err := c.conn.Exec(ctx, command)
	return err
}

func (c *pgConn) WaitForNotification(ctx context.Context) (*Notification, error) {
	n, err := c.conn.WaitForNotification(ctx)
	if err != nil {
		return nil, err
	}
	return &Notification{Channel: n.Channel, Payload: n.Payload}, nil
}

func (c *pgConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
