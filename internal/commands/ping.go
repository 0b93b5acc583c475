package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

func (h *Handler) handlePing(s *discordgo.Session, m *discordgo.MessageCreate) error {
	apiStart := time.Now()
	_, err := s.Channel(m.ChannelID)
	apiLatency := time.Since(apiStart)
	if err != nil {
		return err
	}

	wsLatency := s.HeartbeatLatency()

	_, err = s.ChannelMessageSend(m.ChannelID, fmt.Sprintf(
		"🏓 gateway `%dms` · api `%dms`",
		wsLatency.Milliseconds(), apiLatency.Milliseconds()))
	return err
}
