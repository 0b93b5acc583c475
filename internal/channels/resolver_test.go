package channels

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-relay/internal/settings"
)

const botID = "bot-1"

var sendable = int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages)

type fakeChannelAPI struct {
	channels    []*discordgo.Channel
	perms       map[string]int64
	channelsErr error
}

func (f *fakeChannelAPI) GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	if f.channelsErr != nil {
		return nil, f.channelsErr
	}
	return f.channels, nil
}

func (f *fakeChannelAPI) UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	return f.perms[channelID], nil
}

func text(id, name string) *discordgo.Channel {
	return &discordgo.Channel{ID: id, Name: name, Type: discordgo.ChannelTypeGuildText}
}

func newTestStore(t *testing.T) *settings.Store {
	t.Helper()
	backend, err := settings.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return settings.NewStore(backend)
}

func TestResolvePrefersCachedChannel(t *testing.T) {
	api := &fakeChannelAPI{
		channels: []*discordgo.Channel{
			text("c-other", "render-console-logs"),
			text("c-cached", "render-console-logs"),
		},
		perms: map[string]int64{"c-other": sendable, "c-cached": sendable},
	}
	store := newTestStore(t)
	store.Mutate("g1", func(rec *settings.GuildSettings) {
		rec.RenderConsoleLogsChannelID = "c-cached"
	})

	ch := NewResolver(api, store, botID).Resolve("g1", ConsoleLog)
	require.NotNil(t, ch)
	assert.Equal(t, "c-cached", ch.ID)
}

func TestResolveCachedChannelRenamedFallsBackToName(t *testing.T) {
	api := &fakeChannelAPI{
		channels: []*discordgo.Channel{
			text("c-cached", "renamed-out-of-band"),
			text("c-named", "render-console-logs"),
		},
		perms: map[string]int64{"c-cached": sendable, "c-named": sendable},
	}
	store := newTestStore(t)
	store.Mutate("g1", func(rec *settings.GuildSettings) {
		rec.RenderConsoleLogsChannelID = "c-cached"
	})

	ch := NewResolver(api, store, botID).Resolve("g1", ConsoleLog)
	require.NotNil(t, ch)
	assert.Equal(t, "c-named", ch.ID)
}

func TestResolveFallsBackToAnySendableChannel(t *testing.T) {
	// No cached ID, no channel named render-status, one sendable channel.
	api := &fakeChannelAPI{
		channels: []*discordgo.Channel{
			text("c-general", "general"),
		},
		perms: map[string]int64{"c-general": sendable},
	}

	ch := NewResolver(api, newTestStore(t), botID).Resolve("g1", Status)
	require.NotNil(t, ch)
	assert.Equal(t, "c-general", ch.ID)
}

func TestResolveSkipsUnsendableChannels(t *testing.T) {
	api := &fakeChannelAPI{
		channels: []*discordgo.Channel{
			text("c-locked", "render-status"),
			text("c-open", "general"),
		},
		perms: map[string]int64{
			"c-locked": discordgo.PermissionViewChannel, // no send
			"c-open":   sendable,
		},
	}

	ch := NewResolver(api, newTestStore(t), botID).Resolve("g1", Status)
	require.NotNil(t, ch)
	assert.Equal(t, "c-open", ch.ID)
}

func TestResolveNoChannelsReturnsNil(t *testing.T) {
	api := &fakeChannelAPI{
		channels: []*discordgo.Channel{
			{ID: "c-voice", Name: "render-status", Type: discordgo.ChannelTypeGuildVoice},
		},
		perms: map[string]int64{"c-voice": sendable},
	}

	assert.Nil(t, NewResolver(api, newTestStore(t), botID).Resolve("g1", Status))
}

func TestResolveChannelListErrorReturnsNil(t *testing.T) {
	api := &fakeChannelAPI{channelsErr: errors.New("api down")}
	assert.Nil(t, NewResolver(api, newTestStore(t), botID).Resolve("g1", Status))
}

func TestRoleNames(t *testing.T) {
	assert.Equal(t, "render-console-logs", ConsoleLog.Name())
	assert.Equal(t, "render-errors", Errors.Name())
	assert.Equal(t, "render-failed", Failed.Name())
	assert.Equal(t, "render-status", Status.Name())
	assert.Equal(t, "bot-status", BotStatus.Name())
	assert.Len(t, ProvisionOrder, 5)
}
