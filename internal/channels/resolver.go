package channels

import (
	"github.com/bwmarrin/discordgo"

	"render-relay/internal/settings"
)

// API is the slice of the platform SDK the resolver needs. Satisfied by
// *discordgo.Session.
type API interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// Resolver finds the best sendable channel for a role within a guild. It
// prefers the channel ID provisioning cached in settings, falls back to a
// name match, then to any channel the bot can post in.
type Resolver struct {
	api   API
	store *settings.Store
	botID string
}

func NewResolver(api API, store *settings.Store, botID string) *Resolver {
	return &Resolver{api: api, store: store, botID: botID}
}

// Resolve returns the channel to use for role in guildID, or nil if the
// guild has no channel the bot may post in at all.
func (r *Resolver) Resolve(guildID string, role Role) *discordgo.Channel {
	chans, err := r.api.GuildChannels(guildID)
	if err != nil {
		return nil
	}

	if cached := r.cachedID(guildID, role); cached != "" {
		for _, ch := range chans {
			if ch.ID == cached && textCapable(ch) && ch.Name == role.Name() && r.canSend(ch) {
				return ch
			}
		}
	}

	for _, ch := range chans {
		if ch.Name == role.Name() && textCapable(ch) && r.canSend(ch) {
			return ch
		}
	}

	for _, ch := range chans {
		if textCapable(ch) && r.canSend(ch) {
			return ch
		}
	}

	return nil
}

// cachedID returns the settings-cached channel ID for roles provisioning
// records; other roles are resolved by name only.
func (r *Resolver) cachedID(guildID string, role Role) string {
	rec := r.store.Get(guildID)
	switch role {
	case ConsoleLog:
		return rec.RenderConsoleLogsChannelID
	case Status:
		return rec.LogChannelID
	case Errors:
		return rec.AlertsChannelID
	}
	return ""
}

func (r *Resolver) canSend(ch *discordgo.Channel) bool {
	perms, err := r.api.UserChannelPermissions(r.botID, ch.ID)
	if err != nil {
		return false
	}
	need := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages)
	return perms&need == need
}

func textCapable(ch *discordgo.Channel) bool {
	return ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews
}
