package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go-mutekick/internal/logging"
	"go-mutekick/internal/metrics"
	"go-mutekick/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
)

const disconnectReason = "Muted for too long"

// ErrMemberNotFound is returned by a MemberSource when the member left the guild.
var ErrMemberNotFound = errors.New("member not found")

// Snapshot is the read side of the roster cache the engine consults.
type Snapshot interface {
	IsStale() bool
	Refresh(ctx context.Context)
	Channel(id string) (models.Channel, bool)
	IsExemptChannel(id string) bool
	MemberHasAnyRole(memberID string, roleIDs []string) bool
}

// MemberSource re-fetches a single member's live state.
type MemberSource interface {
	FetchMember(ctx context.Context, guildID, memberID string) (models.Member, error)
}

// ActionSink performs the outbound side effects of enforcement.
type ActionSink interface {
	Disconnect(ctx context.Context, guildID, userID, reason string) error
	SendDirectNotice(ctx context.Context, userID, text string) error
	SendChannelMessage(ctx context.Context, channelID, text string) error
}

// LogQueue receives warning lines for the debounced log channel post.
type LogQueue interface {
	Enqueue(line string)
}

type Settings struct {
	GuildID        string
	LogChannelID   string
	Timeout        time.Duration
	ExemptChannels []string
	IgnoredRoles   []string
}

type pendingTimer struct {
	timer       clockwork.Timer
	deadline    time.Time
	channelID   string
	channelName string
	tag         string
}

// Engine drives the per-member mute enforcement state machine.
// A member is WARNED exactly while it has an entry in pending.
type Engine struct {
	settings Settings
	exempt   map[string]struct{}
	clock    clockwork.Clock
	cache    Snapshot
	members  MemberSource
	actions  ActionSink
	logs     LogQueue

	enabled atomic.Bool
	ready   atomic.Bool

	mu       sync.Mutex
	pending  map[string]*pendingTimer
	closed   bool
	inflight sync.WaitGroup
}

func NewEngine(settings Settings, clock clockwork.Clock, cache Snapshot, members MemberSource, actions ActionSink, logs LogQueue) *Engine {
	e := &Engine{
		settings: settings,
		exempt:   lo.SliceToMap(settings.ExemptChannels, func(id string) (string, struct{}) { return id, struct{}{} }),
		clock:    clock,
		cache:    cache,
		members:  members,
		actions:  actions,
		logs:     logs,
		pending:  make(map[string]*pendingTimer),
	}
	e.SetEnabled(true)
	return e
}

func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
	metrics.EnforcementEnabled.Set(metrics.BoolGauge(enabled))
}

func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// SetReady opens the engine to presence events once the guild has been validated.
func (e *Engine) SetReady(ready bool) {
	e.ready.Store(ready)
}

func (e *Engine) Ready() bool {
	return e.ready.Load()
}

func (e *Engine) Timeout() time.Duration {
	return e.settings.Timeout
}

func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Deadline returns when the member's pending disconnect fires.
func (e *Engine) Deadline(memberID string) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.pending[memberID]
	if !ok || entry.timer == nil {
		return time.Time{}, false
	}
	return entry.deadline, true
}

// HandleVoiceStateUpdate evaluates one presence change. It never returns an error;
// collaborator failures are logged and the event is dropped.
func (e *Engine) HandleVoiceStateUpdate(ctx context.Context, ev models.PresenceEvent) {
	if !e.Enabled() || !e.Ready() {
		return
	}
	if ev.Bot {
		return
	}
	if ev.GuildID != "" && ev.GuildID != e.settings.GuildID {
		return
	}

	channelID := ev.New.ChannelID
	if e.cache.IsStale() || (channelID != "" && !e.knownChannel(channelID)) {
		e.cache.Refresh(ctx)
	}

	log := logging.WithMember(ev.MemberID).With("tag", ev.Tag, "channel", channelID)

	if !ev.New.InVoice() {
		if e.cancel(ev.MemberID) {
			log.Debug("Cleared timer for member who left voice")
		}
		return
	}

	if e.isExempt(channelID) {
		log.Debug("Channel is exempt from enforcement")
		e.cancel(ev.MemberID)
		return
	}

	if e.isPrivileged(ev) {
		return
	}

	if !ev.New.Silenced() {
		if e.cancel(ev.MemberID) {
			log.Debug("Member unmuted, timer cancelled")
		}
		return
	}

	channelName := e.channelName(channelID)
	entry, created := e.reserve(ev.MemberID, channelID, channelName, ev.Tag)
	if entry == nil {
		return
	}
	if !created {
		log.Debug("Member already warned, keeping deadline")
		return
	}

	metrics.WarningsIssued.Inc()
	e.logs.Enqueue(fmt.Sprintf("⚠️ **%s** joined **%s** muted/deafened.", displayTag(ev), channelName))

	if err := e.actions.SendDirectNotice(ctx, ev.MemberID, warningNotice(ev, channelName, e.settings.Timeout)); err != nil {
		metrics.NoticeFailures.WithLabelValues("direct").Inc()
		log.Warn("Failed to send warning DM", "error", err)
	} else {
		log.Debug("Sent warning DM to member")
	}

	if e.arm(ev.MemberID, entry) {
		log.Debug("Started mute timer", "timeout", e.settings.Timeout)
	}
}

// reserve installs a fresh entry unless the member is already warned. A warned
// member who hops to another enforced channel keeps the deadline but the entry
// follows the new channel. It returns nil once the engine has been shut down.
func (e *Engine) reserve(memberID, channelID, channelName, tag string) (*pendingTimer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, false
	}

	if existing, ok := e.pending[memberID]; ok {
		existing.channelID = channelID
		existing.channelName = channelName
		return existing, false
	}

	entry := &pendingTimer{channelID: channelID, channelName: channelName, tag: tag}
	e.pending[memberID] = entry
	metrics.PendingTimers.Set(float64(len(e.pending)))
	return entry, true
}

// arm starts the countdown for a reserved entry. It is a no-op when the entry was
// cancelled while the warning was being delivered.
func (e *Engine) arm(memberID string, entry *pendingTimer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.pending[memberID] != entry {
		return false
	}
	entry.deadline = e.clock.Now().Add(e.settings.Timeout)
	entry.timer = e.clock.AfterFunc(e.settings.Timeout, func() {
		e.fire(memberID, entry)
	})
	return true
}

// cancel removes the member's entry and stops its timer. A fire callback that
// already started observes the removal and does nothing.
func (e *Engine) cancel(memberID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.pending[memberID]
	if !ok {
		return false
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(e.pending, memberID)
	metrics.PendingTimers.Set(float64(len(e.pending)))
	metrics.TimerOutcomes.WithLabelValues("cancelled").Inc()
	return true
}

// release drops the entry only if it still belongs to this timer.
func (e *Engine) release(memberID string, entry *pendingTimer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending[memberID] == entry {
		delete(e.pending, memberID)
		metrics.PendingTimers.Set(float64(len(e.pending)))
	}
}

// CancelAll stops every pending timer and closes the engine: no entry is
// created afterwards and no cancelled callback reaches the disconnect. Used on
// shutdown together with Wait.
func (e *Engine) CancelAll() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	n := len(e.pending)
	for memberID, entry := range e.pending {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(e.pending, memberID)
	}
	metrics.PendingTimers.Set(0)
	if n > 0 {
		metrics.TimerOutcomes.WithLabelValues("cancelled").Add(float64(n))
	}
	return n
}

// Wait blocks until every disconnect that passed its final check has finished,
// or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// commit is the last point a fire can be cancelled. Past it the disconnect
// runs to completion and Wait accounts for it.
func (e *Engine) commit(memberID string, entry *pendingTimer) (channelID, channelName string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.pending[memberID] != entry {
		return "", "", false
	}
	e.inflight.Add(1)
	return entry.channelID, entry.channelName, true
}

func (e *Engine) fire(memberID string, entry *pendingTimer) {
	defer e.release(memberID, entry)
	defer recoverCallback("mute timer")

	e.mu.Lock()
	if e.closed || e.pending[memberID] != entry {
		e.mu.Unlock()
		return
	}
	tag := entry.tag
	e.mu.Unlock()

	ctx := context.Background()
	log := logging.WithMember(memberID).With("tag", tag)

	if !e.Enabled() {
		metrics.TimerOutcomes.WithLabelValues("skipped").Inc()
		log.Debug("Enforcement disabled, dropping expired timer")
		return
	}

	member, err := e.members.FetchMember(ctx, e.settings.GuildID, memberID)
	if err != nil {
		metrics.TimerOutcomes.WithLabelValues("skipped").Inc()
		if errors.Is(err, ErrMemberNotFound) {
			log.Debug("Member left guild during timer")
			return
		}
		log.Error("Failed to fetch member for mute timer", "error", err)
		return
	}

	// The fetch blocks; a cancel or shutdown may have happened meanwhile.
	channelID, channelName, ok := e.commit(memberID, entry)
	if !ok {
		log.Debug("Timer cancelled while member was being fetched")
		return
	}
	defer e.inflight.Done()

	if member.ChannelID != channelID || !member.Silenced() {
		metrics.TimerOutcomes.WithLabelValues("skipped").Inc()
		return
	}
	log = log.With("channel", channelID)

	metrics.TimerOutcomes.WithLabelValues("fired").Inc()
	if member.Tag != "" {
		tag = member.Tag
	}

	if err := e.actions.Disconnect(ctx, e.settings.GuildID, memberID, disconnectReason); err != nil {
		metrics.Disconnects.WithLabelValues("error").Inc()
		log.Error("Error disconnecting member", "error", err)
		return
	}
	metrics.Disconnects.WithLabelValues("success").Inc()
	log.Info("Member disconnected for staying muted")

	notice := fmt.Sprintf("❌ **%s** was disconnected from **%s** for staying muted too long ⏱️💀", tag, channelName)
	if err := e.actions.SendChannelMessage(ctx, e.settings.LogChannelID, notice); err != nil {
		metrics.NoticeFailures.WithLabelValues("channel").Inc()
		log.Error("Failed to post disconnect notice", "error", err)
	}

	if err := e.actions.SendDirectNotice(ctx, memberID, "❌ You were disconnected for staying muted too long ⏱️💀"); err != nil {
		metrics.NoticeFailures.WithLabelValues("direct").Inc()
		log.Debug("Failed to send disconnect DM", "error", err)
	}
}

func (e *Engine) knownChannel(id string) bool {
	_, ok := e.cache.Channel(id)
	return ok
}

func (e *Engine) isExempt(channelID string) bool {
	if _, ok := e.exempt[channelID]; ok {
		return true
	}
	return e.cache.IsExemptChannel(channelID)
}

// isPrivileged prefers the roles carried by the event and falls back to the snapshot.
func (e *Engine) isPrivileged(ev models.PresenceEvent) bool {
	if ev.RoleIDs != nil {
		return lo.Some(ev.RoleIDs, e.settings.IgnoredRoles)
	}
	return e.cache.MemberHasAnyRole(ev.MemberID, e.settings.IgnoredRoles)
}

func (e *Engine) channelName(id string) string {
	if ch, ok := e.cache.Channel(id); ok && ch.Name != "" {
		return ch.Name
	}
	return id
}

func displayTag(ev models.PresenceEvent) string {
	if ev.Tag != "" {
		return ev.Tag
	}
	return ev.MemberID
}

func warningNotice(ev models.PresenceEvent, channelName string, timeout time.Duration) string {
	name := ev.DisplayName
	if name == "" {
		name = displayTag(ev)
	}
	return fmt.Sprintf("🏆 **Hey %s!** You're muted/deafened in **%s**.\n⏱️ You have **%ds** to unmute or you'll be disconnected. ⚔️",
		name, channelName, int(timeout/time.Second))
}

func recoverCallback(name string) {
	if r := recover(); r != nil {
		slog.Error("Recovered panic in background callback", "callback", name, "panic", r)
	}
}
