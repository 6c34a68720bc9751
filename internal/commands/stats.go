package commands

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats holds host and runtime figures shown by /config stats
type SystemStats struct {
	// Host Information
	Hostname   string
	HostUptime time.Duration

	// Memory Information
	TotalMemory   uint64
	UsedMemory    uint64
	MemoryPercent float64

	// Go Runtime
	GoRoutines int
	HeapAlloc  uint64
}

// gatherSystemStats collects host figures; unavailable ones stay zero.
func gatherSystemStats(ctx context.Context) SystemStats {
	var stats SystemStats

	if info, err := host.InfoWithContext(ctx); err == nil {
		stats.Hostname = info.Hostname
		stats.HostUptime = time.Duration(info.Uptime) * time.Second
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.TotalMemory = vm.Total
		stats.UsedMemory = vm.Used
		stats.MemoryPercent = vm.UsedPercent
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats.GoRoutines = runtime.NumGoroutine()
	stats.HeapAlloc = ms.HeapAlloc

	return stats
}

func (h *Handler) handleStats(ctx context.Context, inv Invocation, r Responder) error {
	sys := gatherSystemStats(ctx)
	cache := h.Cache.Stats()

	botInfo := fmt.Sprintf("Uptime: <t:%d:R>\nGuild: %s\nReady: %s",
		h.startedAt.Unix(), h.Cache.GuildName(), onOff(h.Engine.Ready(), "✅", "❌"))
	enforcement := fmt.Sprintf("Status: %s\nActive Timers: %d\nTimeout: %s",
		onOff(h.Engine.Enabled(), "✅ ON", "❌ OFF"), h.Engine.PendingCount(), seconds(h.Engine.Timeout()))
	performance := fmt.Sprintf("Cooldowns: %d\nLog Queue: %d",
		h.Cooldowns.ActiveCount(), h.Logs.Len())
	cfg := fmt.Sprintf("Exempt Channels: %d\nLog Channel: <#%s>",
		len(h.Config.Enforcement.ExemptChannels), h.Config.Bot.LogChannelID)
	hostInfo := fmt.Sprintf("Memory: %s / %s (%.1f%%)\nHeap: %s\nGoroutines: %s",
		formatBytes(sys.UsedMemory), formatBytes(sys.TotalMemory), sys.MemoryPercent,
		formatBytes(sys.HeapAlloc), strconv.Itoa(sys.GoRoutines))
	if sys.HostUptime > 0 {
		hostInfo += "\nHost Uptime: " + formatDuration(sys.HostUptime)
	}
	if h.Health != nil {
		botInfo += "\n" + healthSummary(h.Health.GetStatus())
	}

	embed := &discordgo.MessageEmbed{
		Title: "📊 Bot Statistics",
		Color: colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Bot Info", Value: botInfo, Inline: true},
			{Name: "🎮 Enforcement", Value: enforcement, Inline: true},
			{Name: "📈 Cache", Value: cacheSummary(cache.Roles, cache.Channels, cache.Members), Inline: true},
			{Name: "⚡ Performance", Value: performance, Inline: true},
			{Name: "🔧 Config", Value: cfg, Inline: true},
			{Name: "🖥️ Host", Value: hostInfo, Inline: true},
		},
		Footer:    h.footer(inv),
		Timestamp: h.timestamp(),
	}
	return r.Respond(ctx, Reply{Embed: embed, Ephemeral: true})
}

func healthSummary(status map[string]bool) string {
	names := lo.Keys(status)
	slices.Sort(names)
	return strings.Join(lo.Map(names, func(name string, _ int) string {
		return fmt.Sprintf("Health (%s): %s", name, onOff(status[name], "✅", "❌"))
	}), "\n")
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
