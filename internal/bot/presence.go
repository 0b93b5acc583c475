package bot

import (
	"github.com/robfig/cron/v3"

	"render-relay/internal/logging"
)

var presenceLines = []string{
	"deploys go brrr",
	"watching render-status",
	"relaying deploy webhooks",
}

// StartPresenceRotation cycles the bot's activity text on a fixed schedule.
// Returns a stop function.
func (s *Session) StartPresenceRotation() func() {
	c := cron.New()
	idx := 0

	_, err := c.AddFunc("@every 30s", func() {
		if err := s.discord.UpdateGameStatus(0, presenceLines[idx%len(presenceLines)]); err != nil {
			logging.Debug("bot: presence update failed: %v", err)
		}
		idx++
	})
	if err != nil {
		logging.Warn("bot: presence schedule rejected: %v", err)
		return func() {}
	}

	c.Start()
	return func() { c.Stop() }
}
