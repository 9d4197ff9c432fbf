package eventlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/stream-bot/telemetry"
)

const (
	defaultQueueSize = 1024
	writeTimeout     = 5 * time.Second
)

type entry struct {
	chat *ChatMessage
	poll *PollResult
}

// Writer fans records out to every configured backend from a single goroutine.
// LogChat and LogPollResult never block and never return errors.
type Writer struct {
	backends []Backend
	queue    chan entry
	done     chan struct{}
}

// NewWriter returns a writer with the given queue size (<=0 selects the default).
func NewWriter(queueSize int, backends ...Backend) *Writer {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Writer{
		backends: backends,
		queue:    make(chan entry, queueSize),
		done:     make(chan struct{}),
	}
}

// LogChat enqueues a chat record.
func (w *Writer) LogChat(_ context.Context, rec ChatMessage) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	w.enqueue(entry{chat: &rec}, "chat")
}

// LogPollResult enqueues a poll result record.
func (w *Writer) LogPollResult(_ context.Context, rec PollResult) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	w.enqueue(entry{poll: &rec}, "poll_result")
}

func (w *Writer) enqueue(e entry, kind string) {
	select {
	case w.queue <- e:
	default:
		telemetry.IncSinkDropped()
		slog.Warn("event log queue full; record dropped", slog.String("kind", kind), slog.String("component", "eventlog"))
	}
}

// Run drains the queue until ctx is cancelled, then flushes whatever is still
// queued and closes the backends.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case e := <-w.queue:
			w.write(ctx, e)
		case <-ctx.Done():
			w.flush()
			for _, b := range w.backends {
				if err := b.Close(); err != nil {
					slog.Warn("event log backend close failed", slog.String("backend", b.Name()), slog.Any("err", err))
				}
			}
			return
		}
	}
}

// Done is closed once Run has flushed and closed all backends.
func (w *Writer) Done() <-chan struct{} { return w.done }

func (w *Writer) flush() {
	ctx := context.Background()
	for {
		select {
		case e := <-w.queue:
			w.write(ctx, e)
		default:
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, e entry) {
	for _, b := range w.backends {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		var err error
		switch {
		case e.chat != nil:
			err = b.WriteChat(wctx, *e.chat)
		case e.poll != nil:
			err = b.WritePollResult(wctx, *e.poll)
		}
		cancel()
		if err != nil {
			telemetry.IncSinkFailure(b.Name())
			slog.Warn("event log write failed", slog.String("backend", b.Name()), slog.Any("err", err), slog.String("component", "eventlog"))
		}
	}
}
