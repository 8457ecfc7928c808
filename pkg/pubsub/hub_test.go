package pubsub

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishpatch/dishpatch/pkg/events"
)

// fakeConn records transport commands and delivers scripted
// notifications. Like a real connection it allows only one command or
// wait at a time: Exec fails while a notification wait or another Exec
// is outstanding.
type fakeConn struct {
	mu        sync.Mutex
	commands  []string
	failOn    string // commands containing this substring fail
	closed    bool
	waiting   bool
	inExec    bool
	execDelay time.Duration

	notifCh chan *Notification
}

func newFakeConn() *fakeConn {
	return &fakeConn{notifCh: make(chan *Notification, 16)}
}

func (c *fakeConn) Exec(_ context.Context, command string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("connection closed")
	}
	if c.waiting || c.inExec {
		c.mu.Unlock()
		return errors.New("conn busy")
	}
	if c.failOn != "" && strings.Contains(command, c.failOn) {
		c.mu.Unlock()
		return errors.New("command failed")
	}
	c.inExec = true
	delay := c.execDelay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	c.inExec = false
	c.commands = append(c.commands, command)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) WaitForNotification(ctx context.Context) (*Notification, error) {
	c.mu.Lock()
	c.waiting = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.waiting = false
		c.mu.Unlock()
	}()

	select {
	case n, ok := <-c.notifCh:
		if !ok {
			return nil, errors.New("connection terminated")
		}
		return n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) isWaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

func (c *fakeConn) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// drop simulates an abrupt connection loss
func (c *fakeConn) drop() {
	close(c.notifCh)
}

func (c *fakeConn) recorded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.commands))
	copy(out, c.commands)
	return out
}

// fakeDialer hands out fakeConns in dial order: even dials are listen
// sides, odd dials are notify sides
type fakeDialer struct {
	mu        sync.Mutex
	conns     []*fakeConn
	dials     int
	failDials bool
	dialDelay time.Duration
}

func (d *fakeDialer) Dial(_ context.Context) (Conn, error) {
	if d.dialDelay > 0 {
		time.Sleep(d.dialDelay)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failDials {
		return nil, errors.New("dial refused")
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func newTestHub(d *fakeDialer, handler MessageHandler) *Hub {
	return NewHub(d, Options{
		Handler:              handler,
		ReconnectDelay:       10 * time.Millisecond,
		ReconnectMaxAttempts: 3,
	})
}

func TestInitializeOpensBothConnections(t *testing.T) {
	d := &fakeDialer{}
	h := newTestHub(d, nil)
	defer h.Cleanup()

	require.NoError(t, h.Initialize(context.Background()))

	assert.Equal(t, 2, d.dialCount())
	assert.True(t, h.IsConnected())
}

func TestInitializeIdempotent(t *testing.T) {
	d := &fakeDialer{}
	h := newTestHub(d, nil)
	defer h.Cleanup()

	require.NoError(t, h.Initialize(context.Background()))
	require.NoError(t, h.Initialize(context.Background()))

	// Existing handles are reused, not recreated
	assert.Equal(t, 2, d.dialCount())
}

// TestConcurrentInitializeSingleFlight verifies racing callers share one
// in-flight initialization instead of each opening connections
func TestConcurrentInitializeSingleFlight(t *testing.T) {
	d := &fakeDialer{dialDelay: 5 * time.Millisecond}
	h := newTestHub(d, nil)
	defer h.Cleanup()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Initialize(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, d.dialCount())
}

func TestSubscribeIssuesOneCommandPerChannel(t *testing.T) {
	d := &fakeDialer{}
	h := newTestHub(d, nil)
	defer h.Cleanup()
	require.NoError(t, h.Initialize(context.Background()))

	err := h.Subscribe(context.Background(),
		events.ChannelOrderCreated,
		events.ChannelPaymentCompleted,
	)
	require.NoError(t, err)

	listen := d.conn(0)
	assert.Equal(t, []string{
		`LISTEN "order_created"`,
		`LISTEN "payment_completed"`,
	}, listen.recorded())
}

func TestSubscribeLazyInitializes(t *testing.T) {
	d := &fakeDialer{}
	h := newTestHub(d, nil)
	defer h.Cleanup()

	err := h.Subscribe(context.Background(), events.ChannelOrderCreated)
	require.NoError(t, err)

	assert.Equal(t, 2, d.dialCount())
	assert.True(t, h.IsConnected())
}

// TestSubscribeWhileReceiveLoopWaiting verifies subscribe commands
// reach a connection whose notification wait is outstanding. The
// transport rejects concurrent use of one connection, so the receive
// loop has to run subscription changes between waits.
func TestSubscribeWhileReceiveLoopWaiting(t *testing.T) {
	received := make(chan string, 1)
	handler := func(channel, _ string) { received <- channel }

	d := &fakeDialer{}
	h := newTestHub(d, handler)
	defer h.Cleanup()
	require.NoError(t, h.Initialize(context.Background()))

	listen := d.conn(0)
	require.Eventually(t, func() bool { return listen.isWaiting() }, time.Second, time.Millisecond)

	require.NoError(t, h.Subscribe(context.Background(), events.AllChannels()...))

	var want []string
	for _, ch := range events.AllChannels() {
		want = append(want, `LISTEN `+quoteIdentifier(string(ch)))
	}
	assert.Equal(t, want, listen.recorded())

	// The wait resumed; delivery still works
	listen.notifCh <- &Notification{Channel: "order_created", Payload: "{}"}
	select {
	case ch := <-received:
		assert.Equal(t, "order_created", ch)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered after subscription change")
	}
}

// TestSubscribePartialFailure verifies a failed channel surfaces as an
// error without rolling back channels already subscribed in the call
func TestSubscribePartialFailure(t *testing.T) {
	d := &fakeDialer{}
	h := newTestHub(d, nil)
	defer h.Cleanup()
	require.NoError(t, h.Initialize(context.Background()))

	listen := d.conn(0)
	listen.failOn = `"payment_completed"`

	err := h.Subscribe(context.Background(),
		events.ChannelOrderCreated,
		events.ChannelPaymentCompleted,
		events.ChannelTableStatusChanged,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment_completed")

	// The first channel stayed subscribed, nothing was rolled back
	assert.Equal(t, []string{`LISTEN "order_created"`}, listen.recorded())
}

func TestUnsubscribe(t *testing.T) {
	d := &fakeDialer{}
	h := newTestHub(d, nil)
	defer h.Cleanup()
	require.NoError(t, h.Initialize(context.Background()))

	require.NoError(t, h.Unsubscribe(context.Background(), events.ChannelOrderCreated))

	assert.Equal(t, []string{`UNLISTEN "order_created"`}, d.conn(0).recorded())
}

func TestNotifySendsEscapedCommand(t *testing.T) {
	d := &fakeDialer{}
	h := newTestHub(d, nil)
	defer h.Cleanup()
	require.NoError(t, h.Initialize(context.Background()))

	err := h.Notify(context.Background(), events.ChannelKitchenNotification, `{"message":"chef's call"}`)
	require.NoError(t, err)

	notify := d.conn(1)
	cmds := notify.recorded()
	require.Len(t, cmds, 1)
	assert.Equal(t, `NOTIFY "kitchen_notification", '{"message":"chef''s call"}'`, cmds[0])
}

// TestNotifyQuoteRoundTrip verifies a payload containing quote
// characters decodes identically after passing through the command
// encoding and the transport's unquoting
func TestNotifyQuoteRoundTrip(t *testing.T) {
	original := events.RestaurantNotification{
		RestaurantID: "rest-1",
		Timestamp:    1700000000000,
		Message:      `it's "on the house"`,
	}
	payload, err := events.Encode(original)
	require.NoError(t, err)

	d := &fakeDialer{}
	h := newTestHub(d, nil)
	defer h.Cleanup()
	require.NoError(t, h.Initialize(context.Background()))
	require.NoError(t, h.Notify(context.Background(), original.Channel(), string(payload)))

	cmds := d.conn(1).recorded()
	require.Len(t, cmds, 1)

	received := unquoteNotifyPayload(t, cmds[0])
	decoded, err := events.Decode(events.ChannelRestaurantNotification, []byte(received))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

// unquoteNotifyPayload reverses the literal quoting the way the
// transport server would
func unquoteNotifyPayload(t *testing.T, command string) string {
	t.Helper()
	i := strings.Index(command, ", '")
	require.Greater(t, i, 0)
	quoted := command[i+2:]
	require.True(t, strings.HasPrefix(quoted, "'") && strings.HasSuffix(quoted, "'"))
	return strings.ReplaceAll(quoted[1:len(quoted)-1], "''", "'")
}

func TestNotifyLazyInitializeFailure(t *testing.T) {
	d := &fakeDialer{failDials: true}
	h := newTestHub(d, nil)
	defer h.Cleanup()

	err := h.Notify(context.Background(), events.ChannelOrderCreated, "{}")
	require.Error(t, err)

	// One initialization attempt, no inline retries
	assert.Equal(t, 1, d.dialCount())
	assert.False(t, h.IsConnected())
}

// TestConcurrentNotifySerialized verifies racing publishers on the
// shared notify connection never collide; the transport allows one
// command at a time per connection
func TestConcurrentNotifySerialized(t *testing.T) {
	d := &fakeDialer{}
	h := newTestHub(d, nil)
	defer h.Cleanup()
	require.NoError(t, h.Initialize(context.Background()))

	notify := d.conn(1)
	notify.mu.Lock()
	notify.execDelay = time.Millisecond
	notify.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Notify(context.Background(), events.ChannelOrderCreated, "{}"))
		}()
	}
	wg.Wait()

	assert.Len(t, notify.recorded(), 10)
}

func TestReceiveLoopRoutesNotifications(t *testing.T) {
	var mu sync.Mutex
	var got []Notification
	handler := func(channel, payload string) {
		mu.Lock()
		got = append(got, Notification{Channel: channel, Payload: payload})
		mu.Unlock()
	}

	d := &fakeDialer{}
	h := newTestHub(d, handler)
	defer h.Cleanup()
	require.NoError(t, h.Initialize(context.Background()))

	d.conn(0).notifCh <- &Notification{Channel: "order_created", Payload: `{"order_id":"ord-1"}`}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "order_created", got[0].Channel)
}

func TestCleanupClosesBothConnections(t *testing.T) {
	d := &fakeDialer{}
	h := newTestHub(d, nil)
	require.NoError(t, h.Initialize(context.Background()))

	h.Cleanup()

	assert.True(t, d.conn(0).closed)
	assert.True(t, d.conn(1).closed)
	assert.False(t, h.IsConnected())

	// Safe to call again
	h.Cleanup()
}
