package provision

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-relay/internal/channels"
	"render-relay/internal/settings"
)

const (
	testBotID    = "bot-1"
	testGuildID  = "g1"
	testExecutor = "admin-1"
)

type fakeAPI struct {
	guild    *discordgo.Guild
	guildErr error

	channels []*discordgo.Channel
	roles    []*discordgo.Role
	members  map[string]*discordgo.Member
	webhooks map[string][]*discordgo.Webhook
	audit    *discordgo.GuildAuditLog

	// messages records ChannelMessageSend calls by channel ID.
	messages map[string][]string

	// failChannels makes creation fail for the named channels.
	failChannels map[string]bool

	nextID       int
	roleCreates  int
	roleGrants   []string
	webhookMakes int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		guild: &discordgo.Guild{
			ID:              testGuildID,
			Name:            "Guild One",
			SystemChannelID: "c-sys",
		},
		channels: []*discordgo.Channel{
			{ID: "c-sys", Name: "general", Type: discordgo.ChannelTypeGuildText},
		},
		roles: []*discordgo.Role{
			{ID: testGuildID, Name: "@everyone", Position: 0},
			{ID: "r-bot", Name: "render-relay", Position: 1, Permissions: discordgo.PermissionManageChannels |
				discordgo.PermissionManageRoles | discordgo.PermissionManageWebhooks |
				discordgo.PermissionSendMessages | discordgo.PermissionViewChannel},
		},
		members: map[string]*discordgo.Member{
			testBotID:    {User: &discordgo.User{ID: testBotID}, Roles: []string{"r-bot"}},
			testExecutor: {User: &discordgo.User{ID: testExecutor}},
		},
		webhooks: make(map[string][]*discordgo.Webhook),
		audit: &discordgo.GuildAuditLog{
			AuditLogEntries: []*discordgo.AuditLogEntry{{UserID: testExecutor}},
		},
		messages:     make(map[string][]string),
		failChannels: make(map[string]bool),
	}
}

func (f *fakeAPI) Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error) {
	if f.guildErr != nil {
		return nil, f.guildErr
	}
	return f.guild, nil
}

func (f *fakeAPI) GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return f.channels, nil
}

func (f *fakeAPI) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.failChannels[data.Name] {
		return nil, errors.New("missing permissions")
	}
	f.nextID++
	ch := &discordgo.Channel{
		ID:       fmt.Sprintf("chan-%d", f.nextID),
		Name:     data.Name,
		Type:     data.Type,
		ParentID: data.ParentID,
	}
	f.channels = append(f.channels, ch)
	return ch, nil
}

func (f *fakeAPI) GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return f.roles, nil
}

func (f *fakeAPI) GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error) {
	f.roleCreates++
	role := &discordgo.Role{ID: fmt.Sprintf("role-%d", f.roleCreates), Name: data.Name}
	f.roles = append(f.roles, role)
	return role, nil
}

func (f *fakeAPI) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	m, ok := f.members[userID]
	if !ok {
		return nil, errors.New("unknown member")
	}
	return m, nil
}

func (f *fakeAPI) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.roleGrants = append(f.roleGrants, userID+":"+roleID)
	return nil
}

func (f *fakeAPI) GuildAuditLog(guildID, userID, beforeID string, actionType, limit int, options ...discordgo.RequestOption) (*discordgo.GuildAuditLog, error) {
	return f.audit, nil
}

func (f *fakeAPI) ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error) {
	return f.webhooks[channelID], nil
}

func (f *fakeAPI) WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	f.webhookMakes++
	wh := &discordgo.Webhook{ID: fmt.Sprintf("wh-%d", f.webhookMakes), Name: name, ChannelID: channelID}
	f.webhooks[channelID] = append(f.webhooks[channelID], wh)
	return wh, nil
}

func (f *fakeAPI) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.messages[channelID] = append(f.messages[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeAPI) UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	return discordgo.PermissionAll, nil
}

func newTestProvisioner(t *testing.T, api *fakeAPI) (*Provisioner, *settings.Store) {
	t.Helper()
	backend, err := settings.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	store := settings.NewStore(backend)
	resolver := channels.NewResolver(api, store, testBotID)
	return New(api, store, resolver, testBotID), store
}

func channelByName(api *fakeAPI, name string) *discordgo.Channel {
	for _, ch := range api.channels {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

func TestRunProvisionsEverything(t *testing.T) {
	api := newFakeAPI()
	prov, store := newTestProvisioner(t, api)

	report := prov.Run(testGuildID)

	assert.Empty(t, report.Failures())
	require.NotNil(t, report.Category)
	assert.Equal(t, channels.CategoryName, report.Category.Name)

	for _, role := range channels.ProvisionOrder {
		ch := channelByName(api, role.Name())
		require.NotNil(t, ch, "channel %s must exist", role.Name())
		assert.Equal(t, report.Category.ID, ch.ParentID)
	}

	require.NotNil(t, report.ManagerRole)
	assert.Equal(t, channels.ManagerRoleName, report.ManagerRole.Name)
	assert.Equal(t, []string{testExecutor + ":" + report.ManagerRole.ID}, api.roleGrants)
	assert.Equal(t, 1, api.webhookMakes)

	rec := store.Get(testGuildID)
	assert.Equal(t, channelByName(api, "render-console-logs").ID, rec.RenderConsoleLogsChannelID)
	assert.Equal(t, channelByName(api, "render-status").ID, rec.LogChannelID)
	assert.Equal(t, channelByName(api, "render-errors").ID, rec.AlertsChannelID)
	assert.True(t, rec.Provisioned)

	// The audit block lands in the console-logs channel.
	console := channelByName(api, "render-console-logs")
	require.Len(t, api.messages[console.ID], 1)
	assert.Contains(t, api.messages[console.ID][0], "Guild One")
	assert.Contains(t, api.messages[console.ID][0], StepChannelsCreate)
}

func TestRunIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	prov, _ := newTestProvisioner(t, api)

	first := prov.Run(testGuildID)
	require.Empty(t, first.Failures())
	channelCount := len(api.channels)

	second := prov.Run(testGuildID)
	require.Empty(t, second.Failures())

	assert.Equal(t, 1, api.roleCreates, "re-run must reuse the manager role")
	assert.Equal(t, 1, api.webhookMakes, "re-run must reuse the webhook")
	assert.Equal(t, channelCount, len(api.channels), "re-run must not duplicate channels")
}

func TestRunReusesExistingRole(t *testing.T) {
	api := newFakeAPI()
	api.roles = append(api.roles, &discordgo.Role{ID: "r-existing", Name: channels.ManagerRoleName})
	prov, _ := newTestProvisioner(t, api)

	report := prov.Run(testGuildID)

	assert.Equal(t, 0, api.roleCreates)
	require.NotNil(t, report.ManagerRole)
	assert.Equal(t, "r-existing", report.ManagerRole.ID)
}

func TestRunContainsPartialFailure(t *testing.T) {
	api := newFakeAPI()
	api.failChannels["render-errors"] = true
	prov, store := newTestProvisioner(t, api)

	report := prov.Run(testGuildID)

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, StepChannelsCreate, failures[0].Step)

	// The other four channels and the role still exist.
	for _, role := range channels.ProvisionOrder {
		if role == channels.Errors {
			assert.Nil(t, channelByName(api, role.Name()))
			continue
		}
		assert.NotNil(t, channelByName(api, role.Name()), "channel %s should survive the failure", role.Name())
	}
	require.NotNil(t, report.ManagerRole)
	assert.True(t, store.Get(testGuildID).Provisioned)

	// The audit block lists the one failure alongside the successes.
	console := channelByName(api, "render-console-logs")
	require.NotNil(t, console)
	require.Len(t, api.messages[console.ID], 1)
	assert.Contains(t, api.messages[console.ID][0], "failed")
	assert.Contains(t, api.messages[console.ID][0], "render-errors")
}

func TestRunSurvivesGuildFetchError(t *testing.T) {
	api := newFakeAPI()
	api.guildErr = errors.New("guild unavailable")
	prov, _ := newTestProvisioner(t, api)

	report := prov.Run(testGuildID)
	require.NotEmpty(t, report.Failures())
}

func TestAuditBlockFormat(t *testing.T) {
	report := &Report{GuildID: "g1", GuildName: "Guild One"}
	report.record(ok(StepRoleCreate, "created %q", "System Services Manager"))
	report.record(failed(StepRoleAssign, errors.New("no bot-add audit entry")))

	block := report.AuditBlock()
	assert.Contains(t, block, "Guild One (g1)")
	assert.Contains(t, block, `created "System Services Manager"`)
	assert.Contains(t, block, "failed: no bot-add audit entry")
}
