package settings

// GuildSettings is the per-guild record the bot persists. A guild with no
// record behaves exactly like one holding the zero value, so callers must
// never assume a key exists in the store.
type GuildSettings struct {
	// Cached channel IDs written by provisioning so routing does not
	// depend on channels keeping their conventional names.
	RenderConsoleLogsChannelID string `json:"renderConsoleLogsChannelId,omitempty"`
	LogChannelID               string `json:"logChannelId,omitempty"`
	AlertsChannelID            string `json:"alertsChannelId,omitempty"`

	// Prefix overrides the default command prefix for this guild.
	Prefix string `json:"prefix,omitempty"`

	LoggingEnabled bool `json:"loggingEnabled,omitempty"`
	DebugMode      bool `json:"debugMode,omitempty"`

	// ForwardingPaused skips this guild during webhook dispatch. The zero
	// value keeps forwarding active for freshly joined guilds.
	ForwardingPaused bool `json:"forwardingPaused,omitempty"`

	Provisioned bool `json:"provisioned,omitempty"`
}
