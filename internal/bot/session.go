package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"render-relay/internal/logging"
)

// Session wraps the Discord connection. All remote platform operations go
// through the underlying discordgo session.
type Session struct {
	discord *discordgo.Session
	BotID   string
}

// New creates the session without connecting. Text commands require the
// message-content intent alongside guilds and guild messages.
func New(token string) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	return &Session{discord: dg}, nil
}

// Discord exposes the underlying SDK session.
func (s *Session) Discord() *discordgo.Session {
	return s.discord
}

// Connect opens the gateway connection and records the bot's own user ID.
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	if s.discord.State.User != nil {
		s.BotID = s.discord.State.User.ID
		logging.Info("bot: connected as %s (%s)", s.discord.State.User.Username, s.BotID)
	}
	return nil
}

func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}

// GuildIDs lists the guilds currently in the session's state cache. The
// dispatcher fans out over this set.
func (s *Session) GuildIDs() []string {
	s.discord.State.RLock()
	defer s.discord.State.RUnlock()

	ids := make([]string, 0, len(s.discord.State.Guilds))
	for _, g := range s.discord.State.Guilds {
		ids = append(ids, g.ID)
	}
	return ids
}

// AddHandler registers an event handler on the session.
func (s *Session) AddHandler(handler interface{}) {
	s.discord.AddHandler(handler)
}
