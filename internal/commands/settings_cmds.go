package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"render-relay/internal/settings"
)

func (h *Handler) handlePrefix(s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	if len(args) != 1 || len(args[0]) > 4 {
		_, err := s.ChannelMessageSend(m.ChannelID, "usage: `prefix <up to 4 chars>`")
		return err
	}

	h.store.Mutate(m.GuildID, func(rec *settings.GuildSettings) {
		rec.Prefix = args[0]
	})
	_, err := s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("prefix set to `%s`", args[0]))
	return err
}

func (h *Handler) handleToggle(s *discordgo.Session, m *discordgo.MessageCreate, flag string, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		_, err := s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("usage: `%s on|off`", flag))
		return err
	}
	enabled := args[0] == "on"

	h.store.Mutate(m.GuildID, func(rec *settings.GuildSettings) {
		switch flag {
		case "logging":
			rec.LoggingEnabled = enabled
		case "debug":
			rec.DebugMode = enabled
		}
	})
	_, err := s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("%s is now **%s**", flag, args[0]))
	return err
}

func (h *Handler) handleForwarding(s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	if len(args) != 1 || (args[0] != "pause" && args[0] != "resume") {
		_, err := s.ChannelMessageSend(m.ChannelID, "usage: `forwarding pause|resume`")
		return err
	}
	paused := args[0] == "pause"

	h.store.Mutate(m.GuildID, func(rec *settings.GuildSettings) {
		rec.ForwardingPaused = paused
	})

	state := "resumed"
	if paused {
		state = "paused"
	}
	_, err := s.ChannelMessageSend(m.ChannelID, "webhook forwarding "+state+" for this guild")
	return err
}
