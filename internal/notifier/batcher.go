package notifier

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go-mutekick/internal/metrics"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultBatchDelay = 3 * time.Second

	batchHeader = "🎮 **Mute Alerts:**"
	// Discord rejects message content above this many characters.
	maxMessageLength = 2000
)

// ChannelSender posts a plain text message to a channel.
type ChannelSender interface {
	SendChannelMessage(ctx context.Context, channelID, text string) error
}

// Batcher coalesces log lines and posts them to one channel after a debounce delay.
// At most one flush is pending at a time and every line is sent at most once.
type Batcher struct {
	sender    ChannelSender
	channelID string
	clock     clockwork.Clock
	delay     time.Duration

	mu        sync.Mutex
	queue     []string
	scheduled bool
	timer     clockwork.Timer
	closed    bool
}

func NewBatcher(sender ChannelSender, channelID string, clock clockwork.Clock, delay time.Duration) *Batcher {
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	return &Batcher{
		sender:    sender,
		channelID: channelID,
		clock:     clock,
		delay:     delay,
	}
}

// Enqueue appends a line and arms the flush timer if none is pending.
func (b *Batcher) Enqueue(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		slog.Warn("Log batcher closed, dropping line", "line", line)
		return
	}

	b.queue = append(b.queue, line)
	metrics.LogLinesQueued.Inc()

	if !b.scheduled {
		b.scheduled = true
		b.timer = b.clock.AfterFunc(b.delay, b.flush)
	}
}

// Len returns the number of lines waiting for the next flush.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Batcher) flush() {
	defer b.finishFlush()
	defer recoverCallback("log batch flush")

	b.send(context.Background(), b.swap())
}

// swap takes the queue before sending so lines enqueued mid-send go to the next cycle.
func (b *Batcher) swap() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.queue
	b.queue = nil
	return lines
}

func (b *Batcher) finishFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scheduled = false
	b.timer = nil
	if len(b.queue) > 0 && !b.closed {
		b.scheduled = true
		b.timer = b.clock.AfterFunc(b.delay, b.flush)
	}
}

func (b *Batcher) send(ctx context.Context, lines []string) {
	if len(lines) == 0 {
		metrics.LogFlushes.WithLabelValues("empty").Inc()
		return
	}

	for _, msg := range chunkLines(batchHeader, lines, maxMessageLength) {
		if err := b.sender.SendChannelMessage(ctx, b.channelID, msg); err != nil {
			metrics.LogFlushes.WithLabelValues("error").Inc()
			metrics.NoticeFailures.WithLabelValues("channel").Inc()
			slog.ErrorContext(ctx, "Failed to send batch log", "channel", b.channelID, "lines", len(lines), "error", err)
			return
		}
	}

	metrics.LogFlushes.WithLabelValues("sent").Inc()
	slog.DebugContext(ctx, "Batch log sent", "messageCount", len(lines))
}

// Close cancels the pending timer and sends whatever is queued. Later Enqueue calls are dropped.
func (b *Batcher) Close(ctx context.Context) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
	lines := b.queue
	b.queue = nil
	b.mu.Unlock()

	b.send(ctx, lines)
}

// chunkLines joins lines under header, starting a new message whenever the next
// line would push the current one past limit. Oversized single lines are truncated.
func chunkLines(header string, lines []string, limit int) []string {
	var (
		messages []string
		current  strings.Builder
	)
	current.WriteString(header)

	for _, line := range lines {
		if room := limit - len(header) - 1; len(line) > room {
			line = truncate(line, room)
		}
		if current.Len()+1+len(line) > limit {
			messages = append(messages, current.String())
			current.Reset()
			current.WriteString(header)
		}
		current.WriteByte('\n')
		current.WriteString(line)
	}
	return append(messages, current.String())
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

