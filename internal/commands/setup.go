package commands

import (
	"github.com/bwmarrin/discordgo"
)

// handleSetup re-runs provisioning for the guild. The direct reply is a
// plain acknowledgment either way; step-level failure detail lives only in
// the audit block posted to the console-logs channel.
func (h *Handler) handleSetup(s *discordgo.Session, m *discordgo.MessageCreate) error {
	report := h.prov.Run(m.GuildID)

	msg := "✅ provisioning complete"
	if n := len(report.Failures()); n > 0 {
		msg = "✅ provisioning complete — see the logs channel for details"
	}
	_, err := s.ChannelMessageSend(m.ChannelID, msg)
	return err
}
