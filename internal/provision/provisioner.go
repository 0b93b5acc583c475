// Package provision runs the guild onboarding workflow: category, channels,
// integration webhook, and manager role. Every step is best-effort; the run
// always completes and reports what it could and could not do.
package provision

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"render-relay/internal/channels"
	"render-relay/internal/logging"
	"render-relay/internal/settings"
)

// WebhookName is the integration webhook provisioning creates in the
// guild's system channel.
const WebhookName = "Render Deploy Feed"

// API is the slice of the platform SDK provisioning needs. Satisfied by
// *discordgo.Session.
type API interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildAuditLog(guildID, userID, beforeID string, actionType, limit int, options ...discordgo.RequestOption) (*discordgo.GuildAuditLog, error)
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// requiredPermissions maps capability names to permission bits the bot
// wants before provisioning. Missing bits are warnings, not stop signs:
// each step tries anyway and records its own failure.
var requiredPermissions = []struct {
	name string
	bit  int64
}{
	{"manage-channels", discordgo.PermissionManageChannels},
	{"manage-roles", discordgo.PermissionManageRoles},
	{"manage-webhooks", discordgo.PermissionManageWebhooks},
	{"send-messages", discordgo.PermissionSendMessages},
	{"view-channel", discordgo.PermissionViewChannel},
}

type Provisioner struct {
	api      API
	store    *settings.Store
	resolver *channels.Resolver
	botID    string
}

func New(api API, store *settings.Store, resolver *channels.Resolver, botID string) *Provisioner {
	return &Provisioner{api: api, store: store, resolver: resolver, botID: botID}
}

// Run executes the full step sequence for one guild. It is idempotent:
// existing category, channels, webhook, and role are reused, never
// duplicated. Run never returns an error; per-step failures live in the
// report.
func (p *Provisioner) Run(guildID string) *Report {
	report := &Report{
		GuildID:   guildID,
		StartedAt: time.Now(),
		Channels:  make(map[channels.Role]*discordgo.Channel),
	}

	guild, err := p.api.Guild(guildID)
	if err != nil {
		// Without the guild object nothing below can proceed, but the
		// contract still holds: record and report.
		report.record(failed(StepPermissionCheck, fmt.Errorf("guild fetch: %w", err)))
		p.summarize(report)
		return report
	}
	report.GuildName = guild.Name

	botRoleID := p.highestBotRole(guild)

	report.record(p.permissionCheck(guild))
	report.record(p.webhookCreate(guild))
	report.record(p.categoryCreate(guild, botRoleID, report))
	report.record(p.channelsCreate(guild, botRoleID, report))
	report.record(p.roleCreate(guild, report))
	report.record(p.roleAssign(guild, report))
	p.summarize(report)

	p.store.Mutate(guildID, func(rec *settings.GuildSettings) {
		rec.Provisioned = true
	})

	logging.Info("provision: guild %s (%s) done, %d step failure(s)",
		guild.Name, guildID, len(report.Failures()))
	return report
}

// permissionCheck aggregates the bot member's role permissions and lists
// any missing capability. Never halts the run.
func (p *Provisioner) permissionCheck(guild *discordgo.Guild) StepResult {
	perms, err := p.guildPermissions(guild)
	if err != nil {
		return failed(StepPermissionCheck, err)
	}

	if perms&discordgo.PermissionAdministrator != 0 {
		return ok(StepPermissionCheck, "administrator")
	}

	var missing []string
	for _, req := range requiredPermissions {
		if perms&req.bit == 0 {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		logging.Warn("provision: guild %s missing capabilities %v, continuing anyway", guild.ID, missing)
		return ok(StepPermissionCheck, "missing %v", missing)
	}
	return ok(StepPermissionCheck, "all capabilities present")
}

// guildPermissions folds the permission bits of every role the bot member
// holds, including @everyone.
func (p *Provisioner) guildPermissions(guild *discordgo.Guild) (int64, error) {
	member, err := p.api.GuildMember(guild.ID, p.botID)
	if err != nil {
		return 0, fmt.Errorf("member fetch: %w", err)
	}

	roles, err := p.api.GuildRoles(guild.ID)
	if err != nil {
		return 0, fmt.Errorf("roles fetch: %w", err)
	}

	held := make(map[string]bool, len(member.Roles)+1)
	for _, id := range member.Roles {
		held[id] = true
	}
	held[guild.ID] = true // @everyone

	var perms int64
	for _, role := range roles {
		if held[role.ID] {
			perms |= role.Permissions
		}
	}
	return perms, nil
}

// highestBotRole returns the ID of the bot's highest-positioned role, or ""
// if the bot holds none beyond @everyone.
func (p *Provisioner) highestBotRole(guild *discordgo.Guild) string {
	member, err := p.api.GuildMember(guild.ID, p.botID)
	if err != nil {
		return ""
	}
	roles, err := p.api.GuildRoles(guild.ID)
	if err != nil {
		return ""
	}

	held := make(map[string]bool, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = true
	}

	var best *discordgo.Role
	for _, role := range roles {
		if held[role.ID] && (best == nil || role.Position > best.Position) {
			best = role
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

// webhookCreate places the integration webhook in the guild's system
// channel, or the first channel where the bot may manage webhooks. An
// existing webhook with the expected name is reused.
func (p *Provisioner) webhookCreate(guild *discordgo.Guild) StepResult {
	channelID := guild.SystemChannelID
	if channelID == "" {
		chans, err := p.api.GuildChannels(guild.ID)
		if err != nil {
			return failed(StepWebhookCreate, fmt.Errorf("channel list: %w", err))
		}
		for _, ch := range chans {
			if ch.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			perms, err := p.api.UserChannelPermissions(p.botID, ch.ID)
			if err == nil && perms&discordgo.PermissionManageWebhooks != 0 {
				channelID = ch.ID
				break
			}
		}
	}
	if channelID == "" {
		return failed(StepWebhookCreate, fmt.Errorf("no channel accepts webhooks"))
	}

	if existing, err := p.api.ChannelWebhooks(channelID); err == nil {
		for _, wh := range existing {
			if wh.Name == WebhookName {
				return ok(StepWebhookCreate, "reused %q in <#%s>", WebhookName, channelID)
			}
		}
	}

	if _, err := p.api.WebhookCreate(channelID, WebhookName, ""); err != nil {
		return failed(StepWebhookCreate, err)
	}
	return ok(StepWebhookCreate, "created %q in <#%s>", WebhookName, channelID)
}

// categoryCreate makes the private category that contains every channel the
// bot provisions: visible to the bot, view-denied to @everyone.
func (p *Provisioner) categoryCreate(guild *discordgo.Guild, botRoleID string, report *Report) StepResult {
	chans, err := p.api.GuildChannels(guild.ID)
	if err != nil {
		return failed(StepCategoryCreate, fmt.Errorf("channel list: %w", err))
	}
	for _, ch := range chans {
		if ch.Type == discordgo.ChannelTypeGuildCategory && ch.Name == channels.CategoryName {
			report.Category = ch
			return ok(StepCategoryCreate, "reused %q", channels.CategoryName)
		}
	}

	category, err := p.api.GuildChannelCreateComplex(guild.ID, discordgo.GuildChannelCreateData{
		Name:                 channels.CategoryName,
		Type:                 discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: p.privacyOverwrites(guild.ID, botRoleID),
	})
	if err != nil {
		return failed(StepCategoryCreate, err)
	}
	report.Category = category
	return ok(StepCategoryCreate, "created %q", channels.CategoryName)
}

// channelsCreate makes the fixed channel set under the category. Each
// creation is independent; one failure does not abort the rest. Channel IDs
// for routed roles are cached into settings as they succeed.
func (p *Provisioner) channelsCreate(guild *discordgo.Guild, botRoleID string, report *Report) StepResult {
	existing, err := p.api.GuildChannels(guild.ID)
	if err != nil {
		return failed(StepChannelsCreate, fmt.Errorf("channel list: %w", err))
	}

	parentID := ""
	if report.Category != nil {
		parentID = report.Category.ID
	}

	var created, reused int
	var failures []string
	for _, role := range channels.ProvisionOrder {
		ch := findChannel(existing, role.Name(), parentID)
		if ch == nil {
			ch, err = p.api.GuildChannelCreateComplex(guild.ID, discordgo.GuildChannelCreateData{
				Name:                 role.Name(),
				Type:                 discordgo.ChannelTypeGuildText,
				ParentID:             parentID,
				PermissionOverwrites: p.privacyOverwrites(guild.ID, botRoleID),
			})
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", role.Name(), err))
				logging.Warn("provision: guild %s channel %s: %v", guild.ID, role.Name(), err)
				continue
			}
			created++
		} else {
			reused++
		}

		report.Channels[role] = ch
		p.cacheChannelID(guild.ID, role, ch.ID)
	}

	if len(failures) > 0 {
		return StepResult{
			Step:   StepChannelsCreate,
			Detail: fmt.Sprintf("%d created, %d reused", created, reused),
			Err:    fmt.Errorf("%d failed: %v", len(failures), failures),
		}
	}
	return ok(StepChannelsCreate, "%d created, %d reused", created, reused)
}

// cacheChannelID records routed channels into settings so the resolver can
// find them on later dispatches even if names change.
func (p *Provisioner) cacheChannelID(guildID string, role channels.Role, channelID string) {
	switch role {
	case channels.ConsoleLog:
		p.store.Mutate(guildID, func(rec *settings.GuildSettings) { rec.RenderConsoleLogsChannelID = channelID })
	case channels.Status:
		p.store.Mutate(guildID, func(rec *settings.GuildSettings) { rec.LogChannelID = channelID })
	case channels.Errors:
		p.store.Mutate(guildID, func(rec *settings.GuildSettings) { rec.AlertsChannelID = channelID })
	}
}

// privacyOverwrites denies @everyone the view permission and grants the
// bot's highest role (or the bot member itself) view, send, and
// manage-messages.
func (p *Provisioner) privacyOverwrites(guildID, botRoleID string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID, // @everyone shares the guild's ID
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
	}

	allow := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageMessages)
	if botRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    botRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: allow,
		})
	} else {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    p.botID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: allow,
		})
	}
	return overwrites
}

// roleCreate makes the manager role, reusing an exact-name match so a
// re-run never duplicates it.
func (p *Provisioner) roleCreate(guild *discordgo.Guild, report *Report) StepResult {
	roles, err := p.api.GuildRoles(guild.ID)
	if err != nil {
		return failed(StepRoleCreate, fmt.Errorf("roles fetch: %w", err))
	}
	for _, role := range roles {
		if role.Name == channels.ManagerRoleName {
			report.ManagerRole = role
			return ok(StepRoleCreate, "reused %q", channels.ManagerRoleName)
		}
	}

	role, err := p.api.GuildRoleCreate(guild.ID, &discordgo.RoleParams{
		Name: channels.ManagerRoleName,
	})
	if err != nil {
		return failed(StepRoleCreate, err)
	}
	report.ManagerRole = role
	return ok(StepRoleCreate, "created %q", channels.ManagerRoleName)
}

// roleAssign grants the manager role to whoever added the bot, identified
// through the newest bot-add audit-log entry. Every miss is non-fatal and
// never retried.
func (p *Provisioner) roleAssign(guild *discordgo.Guild, report *Report) StepResult {
	if report.ManagerRole == nil {
		return failed(StepRoleAssign, fmt.Errorf("no manager role available"))
	}

	audit, err := p.api.GuildAuditLog(guild.ID, "", "", int(discordgo.AuditLogActionBotAdd), 1)
	if err != nil {
		return failed(StepRoleAssign, fmt.Errorf("audit log: %w", err))
	}
	if len(audit.AuditLogEntries) == 0 {
		return failed(StepRoleAssign, fmt.Errorf("no bot-add audit entry"))
	}

	executor := audit.AuditLogEntries[0].UserID
	if executor == "" {
		return failed(StepRoleAssign, fmt.Errorf("audit entry has no executor"))
	}

	if _, err := p.api.GuildMember(guild.ID, executor); err != nil {
		return failed(StepRoleAssign, fmt.Errorf("member %s fetch: %w", executor, err))
	}
	if err := p.api.GuildMemberRoleAdd(guild.ID, executor, report.ManagerRole.ID); err != nil {
		return failed(StepRoleAssign, fmt.Errorf("grant to %s: %w", executor, err))
	}
	return ok(StepRoleAssign, "granted to <@%s>", executor)
}

// summarize posts the audit block to the console-logs channel created this
// run, falling back to the resolver if that creation failed.
func (p *Provisioner) summarize(report *Report) {
	target := ""
	if ch, ok := report.Channels[channels.ConsoleLog]; ok {
		target = ch.ID
	} else if ch := p.resolver.Resolve(report.GuildID, channels.ConsoleLog); ch != nil {
		target = ch.ID
	}

	if target == "" {
		report.record(failed(StepSummarize, fmt.Errorf("no channel for audit block")))
		return
	}

	if _, err := p.api.ChannelMessageSend(target, report.AuditBlock()); err != nil {
		report.record(failed(StepSummarize, err))
		return
	}
	report.record(ok(StepSummarize, "posted to <#%s>", target))
}

func findChannel(chans []*discordgo.Channel, name, parentID string) *discordgo.Channel {
	for _, ch := range chans {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == name {
			if parentID == "" || ch.ParentID == parentID {
				return ch
			}
		}
	}
	return nil
}
