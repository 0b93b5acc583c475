// Package commands implements the prefix text commands used to operate the
// bot: informational queries plus settings mutations gated on the manager
// role.
package commands

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"render-relay/internal/channels"
	"render-relay/internal/logging"
	"render-relay/internal/metrics"
	"render-relay/internal/provision"
	"render-relay/internal/settings"
)

// DefaultPrefix applies when a guild has no prefix override stored.
const DefaultPrefix = "!"

type Handler struct {
	store    *settings.Store
	prov     *provision.Provisioner
	counters *metrics.Counters
}

func NewHandler(store *settings.Store, prov *provision.Provisioner, counters *metrics.Counters) *Handler {
	return &Handler{store: store, prov: prov, counters: counters}
}

// HandleMessage routes guild messages carrying the command prefix. Bots and
// DMs are ignored.
func (h *Handler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	prefix := h.store.Get(m.GuildID).Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasPrefix(m.Content, prefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, prefix))
	if len(fields) == 0 {
		return
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch command {
	case "ping":
		err = h.handlePing(s, m)
	case "status":
		err = h.handleStatus(s, m)
	case "help":
		err = h.handleHelp(s, m, prefix)
	case "setup":
		err = h.requireManager(s, m, func() error { return h.handleSetup(s, m) })
	case "prefix":
		err = h.requireManager(s, m, func() error { return h.handlePrefix(s, m, args) })
	case "logging":
		err = h.requireManager(s, m, func() error { return h.handleToggle(s, m, "logging", args) })
	case "debug":
		err = h.requireManager(s, m, func() error { return h.handleToggle(s, m, "debug", args) })
	case "forwarding":
		err = h.requireManager(s, m, func() error { return h.handleForwarding(s, m, args) })
	default:
		return
	}

	if err != nil {
		logging.Error("commands: %s in guild %s: %v", command, m.GuildID, err)
		s.ChannelMessageSend(m.ChannelID, "⚠️ something went wrong, check the logs channel")
	}
}

// requireManager runs fn only for the guild owner, administrators, or
// holders of the manager role.
func (h *Handler) requireManager(s *discordgo.Session, m *discordgo.MessageCreate, fn func() error) error {
	if h.isManager(s, m) {
		return fn()
	}
	_, err := s.ChannelMessageSend(m.ChannelID,
		"you need the **"+channels.ManagerRoleName+"** role for that")
	return err
}

func (h *Handler) isManager(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	guild, err := s.State.Guild(m.GuildID)
	if err != nil || m.Member == nil {
		return false
	}
	if guild.OwnerID == m.Author.ID {
		return true
	}

	managerRoleID := ""
	for _, role := range guild.Roles {
		if role.Name == channels.ManagerRoleName {
			managerRoleID = role.ID
			break
		}
	}
	for _, roleID := range m.Member.Roles {
		if roleID == managerRoleID && managerRoleID != "" {
			return true
		}
	}

	perms, err := s.State.MessagePermissions(m.Message)
	return err == nil && perms&discordgo.PermissionAdministrator != 0
}

func (h *Handler) handleHelp(s *discordgo.Session, m *discordgo.MessageCreate, prefix string) error {
	lines := []string{
		"**" + prefix + "ping** – latency check",
		"**" + prefix + "status** – host and bot statistics",
		"**" + prefix + "setup** – re-run channel/role provisioning",
		"**" + prefix + "prefix <p>** – change the command prefix",
		"**" + prefix + "logging on|off**, **" + prefix + "debug on|off** – feature flags",
		"**" + prefix + "forwarding pause|resume** – webhook relay for this guild",
	}
	_, err := s.ChannelMessageSend(m.ChannelID, strings.Join(lines, "\n"))
	return err
}
