package bot

import (
	"github.com/bwmarrin/discordgo"

	"render-relay/internal/logging"
	"render-relay/internal/provision"
	"render-relay/internal/settings"
)

// BindHandlers wires gateway events to their consumers. GuildCreate fires
// both on join and on every reconnect replay, so provisioning is gated on
// the settings record.
func (s *Session) BindHandlers(prov *provision.Provisioner, store *settings.Store, onMessage func(*discordgo.Session, *discordgo.MessageCreate)) {
	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.Ready) {
		logging.Info("bot: ready, serving %d guild(s)", len(r.Guilds))
	})

	s.discord.AddHandler(func(sess *discordgo.Session, g *discordgo.GuildCreate) {
		if store.Get(g.ID).Provisioned {
			logging.Debug("bot: guild %s already provisioned", g.ID)
			return
		}
		logging.Info("bot: joined guild %s (%s), provisioning", g.Name, g.ID)
		go prov.Run(g.ID)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, g *discordgo.GuildDelete) {
		if !g.Unavailable {
			logging.Info("bot: removed from guild %s", g.ID)
		}
	})

	if onMessage != nil {
		s.discord.AddHandler(onMessage)
	}
}
