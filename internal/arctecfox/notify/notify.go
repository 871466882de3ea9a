// Package notify keeps the transient toast messages shown to the user.
// A Notifier is created at start-up, handed to whatever needs to report
// outcomes, and closed at shutdown.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDuration is how long a message stays queued when no duration is given.
const DefaultDuration = 3 * time.Second

type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Error   Severity = "error"
	Warning Severity = "warning"
)

// Message is one queued notification.
type Message struct {
	ID       int64
	Text     string
	Severity Severity
}

// Sink receives every message as it is queued.
type Sink func(Message)

type Option func(*Notifier)

// WithSink installs a sink.
func WithSink(sink Sink) Option {
	return func(n *Notifier) { n.sink = sink }
}

// WithLogger logs every queued message at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Notifier) { n.logger = logger.Named("notifier") }
}

// WithClock replaces time.Now for id generation.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// Notifier is safe for concurrent use.
type Notifier struct {
	mu       sync.Mutex
	messages []Message
	timers   map[int64]*time.Timer
	lastID   int64
	closed   bool

	sink   Sink
	logger *zap.Logger
	now    func() time.Time
}

func New(opts ...Option) *Notifier {
	n := &Notifier{
		timers: make(map[int64]*time.Timer),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify queues text and schedules its removal after d. A non-positive d
// uses DefaultDuration. On a closed Notifier the message is returned but
// not queued.
func (n *Notifier) Notify(text string, severity Severity, d time.Duration) Message {
	if d <= 0 {
		d = DefaultDuration
	}

	n.mu.Lock()
	id := n.now().UnixNano()
	if id <= n.lastID {
		id = n.lastID + 1
	}
	n.lastID = id
	msg := Message{ID: id, Text: text, Severity: severity}
	if n.closed {
		n.mu.Unlock()
		return msg
	}
	n.messages = append(n.messages, msg)
	n.timers[id] = time.AfterFunc(d, func() { n.Remove(id) })
	sink := n.sink
	n.mu.Unlock()

	n.logger.Debug("notification queued",
		zap.Int64("id", id),
		zap.String("severity", string(severity)),
		zap.String("text", text),
	)
	if sink != nil {
		sink(msg)
	}
	return msg
}

func (n *Notifier) Success(text string) Message {
	return n.Notify(text, Success, DefaultDuration)
}

func (n *Notifier) Error(text string) Message {
	return n.Notify(text, Error, DefaultDuration)
}

// Remove drops the message with the given id. Unknown ids are ignored.
func (n *Notifier) Remove(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	for i, m := range n.messages {
		if m.ID == id {
			n.messages = append(n.messages[:i], n.messages[i+1:]...)
			return
		}
	}
}

// Messages returns the queued messages in insertion order.
func (n *Notifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.messages))
	copy(out, n.messages)
	return out
}

// Close stops pending expiries and empties the queue.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
	n.messages = nil
	n.closed = true
}
