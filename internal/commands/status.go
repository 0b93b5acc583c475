package commands

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// handleStatus reports host and bot statistics in one embed. Individual
// probe failures just blank out their field.
func (h *Handler) handleStatus(s *discordgo.Session, m *discordgo.MessageCreate) error {
	fields := []*discordgo.MessageEmbedField{}

	if info, err := host.Info(); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Host",
			Value:  fmt.Sprintf("%s (%s), up %s", info.Hostname, info.Platform, (time.Duration(info.Uptime) * time.Second).Round(time.Minute)),
			Inline: false,
		})
	}

	if percents, err := cpu.Percent(time.Second, false); err == nil && len(percents) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "CPU",
			Value:  fmt.Sprintf("%.1f%% of %d cores", percents[0], runtime.NumCPU()),
			Inline: true,
		})
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Memory",
			Value:  fmt.Sprintf("%.1f%% of %d MiB", vm.UsedPercent, vm.Total/1024/1024),
			Inline: true,
		})
	}

	guildCount := 0
	s.State.RLock()
	guildCount = len(s.State.Guilds)
	s.State.RUnlock()

	fields = append(fields, &discordgo.MessageEmbedField{
		Name:   "Bot",
		Value:  fmt.Sprintf("%d guild(s) · gateway %dms", guildCount, s.HeartbeatLatency().Milliseconds()),
		Inline: false,
	})

	fields = append(fields, &discordgo.MessageEmbedField{
		Name:   "Webhook ingress",
		Value:  "```\n" + h.counters.Export() + "```",
		Inline: false,
	})

	_, err := s.ChannelMessageSendEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title:     "📊 Relay Status",
		Color:     0x5865F2,
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return err
}
