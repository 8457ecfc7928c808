package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/dishpatch/dishpatch/pkg/events"
	"github.com/dishpatch/dishpatch/pkg/log"
	"github.com/dishpatch/dishpatch/pkg/metrics"
)

// ErrNotConnected is returned when an operation needs a transport
// connection that does not exist and could not be established
var ErrNotConnected = errors.New("pubsub: not connected")

// closeTimeout bounds connection teardown during Cleanup
const closeTimeout = 5 * time.Second

// MessageHandler receives every inbound notification from the listen
// side. Handlers must not block; they run on the receive loop.
type MessageHandler func(channel, payload string)

// Options configures a Hub
type Options struct {
	// Handler receives inbound notifications (typically the dispatcher)
	Handler MessageHandler

	// ReconnectDelay is the fixed wait before each reconnection attempt
	ReconnectDelay time.Duration

	// ReconnectMaxAttempts bounds consecutive failed reconnections
	// before the hub gives up permanently
	ReconnectMaxAttempts int
}

// listenCmd is a subscription change executed by the receive loop. The
// transport rejects concurrent use of one connection, so the loop is
// the only goroutine that touches the listen side once it is running.
type listenCmd struct {
	command string
	reply   chan error
}

// Hub owns the two transport connections: one dedicated to
// subscribing/receiving (listen side), one dedicated to publishing
// (notify side). The two handles are private to the hub and monitored
// independently.
type Hub struct {
	dialer  Dialer
	handler MessageHandler
	logger  zerolog.Logger

	mu           sync.Mutex
	listenConn   Conn
	notifyConn   Conn
	listenCancel context.CancelFunc
	connected    bool

	// channels is the desired subscription set in registration order.
	// It survives Cleanup so a reconnect restores the same set.
	channels []events.Channel

	// cmds, wake and loopDone belong to the current receive loop:
	// queued subscription commands, the cancel handle that interrupts
	// the loop's notification wait, and the channel closed on loop exit
	cmds     chan listenCmd
	wake     context.CancelFunc
	loopDone chan struct{}

	// notifyMu serializes commands on the notify side; the transport
	// allows only one in-flight command per connection
	notifyMu sync.Mutex

	// initGroup collapses concurrent Initialize calls into a single
	// in-flight initialization that all callers await
	initGroup singleflight.Group

	reconnector *reconnector
}

// NewHub creates a hub. Connections are not opened until Initialize
// (or a lazy first Subscribe/Notify).
func NewHub(dialer Dialer, opts Options) *Hub {
	h := &Hub{
		dialer:  dialer,
		handler: opts.Handler,
		logger:  log.WithComponent("pubsub"),
	}
	h.reconnector = newReconnector(h, opts.ReconnectDelay, opts.ReconnectMaxAttempts)
	return h
}

// Initialize opens both connection handles, subscribes the recorded
// channel set, and starts the receive loop. Concurrent callers share
// one in-flight initialization; calling it while already initialized
// reuses the existing handles rather than leaking new connections.
func (h *Hub) Initialize(ctx context.Context) error {
	_, err, _ := h.initGroup.Do("initialize", func() (interface{}, error) {
		return nil, h.initialize(ctx)
	})
	return err
}

func (h *Hub) initialize(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listenConn == nil {
		conn, err := h.dialer.Dial(ctx)
		if err != nil {
			return fmt.Errorf("failed to open listen connection: %w", err)
		}

		// The receive loop parks the connection in a notification wait,
		// so the current channel set must be subscribed before the loop
		// takes ownership
		for _, ch := range h.channels {
			if err := conn.Exec(ctx, listenCommand(string(ch))); err != nil {
				closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				conn.Close(closeCtx)
				cancel()
				return fmt.Errorf("failed to subscribe to %s: %w", ch, err)
			}
		}

		h.listenConn = conn
		h.cmds = make(chan listenCmd, 16)
		h.loopDone = make(chan struct{})

		loopCtx, cancel := context.WithCancel(context.Background())
		h.listenCancel = cancel
		go h.receiveLoop(loopCtx, conn, h.cmds, h.loopDone)
	}

	if h.notifyConn == nil {
		conn, err := h.dialer.Dial(ctx)
		if err != nil {
			return fmt.Errorf("failed to open notify connection: %w", err)
		}
		h.notifyConn = conn
	}

	h.connected = true
	metrics.HubConnected.Set(1)
	return nil
}

// receiveLoop owns the listen connection. It alternates between running
// queued subscription commands and waiting for notifications; a
// subscription change cancels the wait so the loop can execute it. Any
// other wait error is a lost connection, unless the loop context was
// canceled by Cleanup.
func (h *Hub) receiveLoop(ctx context.Context, conn Conn, cmds chan listenCmd, done chan struct{}) {
	defer close(done)

	for {
		waitCtx, wake := context.WithCancel(ctx)
		h.mu.Lock()
		if h.cmds == cmds {
			// Still the owning loop; a replacement loop may already be
			// running after a Cleanup/Initialize cycle
			h.wake = wake
		}
		h.mu.Unlock()

		runCommands(ctx, conn, cmds)

		n, err := conn.WaitForNotification(waitCtx)
		wake()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if waitCtx.Err() != nil {
				// Woken to run a subscription command
				continue
			}
			h.logger.Warn().Err(err).Msg("listen connection lost")
			h.connectionLost()
			return
		}
		if h.handler != nil {
			h.handler(n.Channel, n.Payload)
		}
	}
}

// runCommands executes every queued subscription command. Replies are
// buffered, so a caller that gave up waiting never blocks the loop.
func runCommands(ctx context.Context, conn Conn, cmds chan listenCmd) {
	for {
		select {
		case cmd := <-cmds:
			cmd.reply <- conn.Exec(ctx, cmd.command)
		default:
			return
		}
	}
}

// routeCommand hands a subscription command to the receive loop and
// waits for the result, interrupting the loop's notification wait so
// the command runs promptly
func (h *Hub) routeCommand(ctx context.Context, command string) error {
	h.mu.Lock()
	cmds, done := h.cmds, h.loopDone
	h.mu.Unlock()
	if cmds == nil {
		return ErrNotConnected
	}

	cmd := listenCmd{command: command, reply: make(chan error, 1)}
	select {
	case cmds <- cmd:
	case <-done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}

	// Read the wake handle only after the command is queued: whichever
	// wait the handle interrupts, the command is already visible to the
	// drain that follows it
	h.mu.Lock()
	wake := h.wake
	h.mu.Unlock()
	if wake != nil {
		wake()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// connectionLost marks the hub disconnected and hands control to the
// reconnection controller
func (h *Hub) connectionLost() {
	h.mu.Lock()
	h.connected = false
	h.mu.Unlock()
	metrics.HubConnected.Set(0)

	h.reconnector.connectionLost()
}

// Subscribe issues one subscribe command per channel, sequentially.
// A failed channel surfaces as an error but channels already subscribed
// in the same call stay subscribed, and every requested channel joins
// the set restored after a reconnect. With no listen connection yet,
// Subscribe initializes the hub first.
func (h *Hub) Subscribe(ctx context.Context, channels ...events.Channel) error {
	h.mu.Lock()
	for _, ch := range channels {
		h.rememberChannel(ch)
	}
	initialized := h.listenConn != nil
	h.mu.Unlock()

	if !initialized {
		// initialize subscribes the recorded set before the receive
		// loop takes the connection
		return h.Initialize(ctx)
	}

	for _, ch := range channels {
		if err := h.routeCommand(ctx, listenCommand(string(ch))); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", ch, err)
		}
		h.logger.Debug().Str("channel", string(ch)).Msg("subscribed")
	}
	return nil
}

// Unsubscribe issues one unsubscribe command per channel, sequentially,
// with the same partial-failure semantics as Subscribe
func (h *Hub) Unsubscribe(ctx context.Context, channels ...events.Channel) error {
	h.mu.Lock()
	initialized := h.listenConn != nil
	h.mu.Unlock()
	if !initialized {
		return ErrNotConnected
	}

	for _, ch := range channels {
		if err := h.routeCommand(ctx, unlistenCommand(string(ch))); err != nil {
			return fmt.Errorf("failed to unsubscribe from %s: %w", ch, err)
		}
		h.mu.Lock()
		h.forgetChannel(ch)
		h.mu.Unlock()
		h.logger.Debug().Str("channel", string(ch)).Msg("unsubscribed")
	}
	return nil
}

// rememberChannel and forgetChannel maintain the desired subscription
// set. Callers hold h.mu.
func (h *Hub) rememberChannel(ch events.Channel) {
	for _, c := range h.channels {
		if c == ch {
			return
		}
	}
	h.channels = append(h.channels, ch)
}

func (h *Hub) forgetChannel(ch events.Channel) {
	for i, c := range h.channels {
		if c == ch {
			h.channels = append(h.channels[:i], h.channels[i+1:]...)
			return
		}
	}
}

// Notify performs a raw, single-attempt send of a payload on a
// channel. Retry policy lives with the caller (the event publisher).
// With no notify connection yet, one initialization is attempted; if
// it fails the delivery is forfeited and the error returned.
func (h *Hub) Notify(ctx context.Context, ch events.Channel, payload string) error {
	h.mu.Lock()
	conn := h.notifyConn
	h.mu.Unlock()

	if conn == nil {
		if err := h.Initialize(ctx); err != nil {
			return fmt.Errorf("no notify connection: %w", err)
		}
		h.mu.Lock()
		conn = h.notifyConn
		h.mu.Unlock()
		if conn == nil {
			return ErrNotConnected
		}
	}

	// Concurrent publishers share the notify connection; one command at
	// a time
	h.notifyMu.Lock()
	err := conn.Exec(ctx, notifyCommand(string(ch), payload))
	h.notifyMu.Unlock()
	if err != nil {
		return fmt.Errorf("notify on %s failed: %w", ch, err)
	}
	return nil
}

// IsConnected reports whether the hub's connections are up. After the
// reconnection controller gives up this reports false permanently.
func (h *Hub) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// Cleanup cancels any pending reconnect timer, stops the receive loop,
// and closes both connection handles. The desired channel set is kept
// so a later reinitialization restores it. Close errors are logged and
// swallowed. Safe to call multiple times and from signal handlers.
func (h *Hub) Cleanup() {
	h.reconnector.cancelTimer()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listenCancel != nil {
		h.listenCancel()
		h.listenCancel = nil
	}
	h.cmds = nil
	h.wake = nil

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if h.listenConn != nil {
		if err := h.listenConn.Close(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("failed to close listen connection")
		}
		h.listenConn = nil
	}
	if h.notifyConn != nil {
		if err := h.notifyConn.Close(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("failed to close notify connection")
		}
		h.notifyConn = nil
	}

	h.connected = false
	metrics.HubConnected.Set(0)
}
