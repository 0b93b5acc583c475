// Package channels maps the bot's semantic channel roles to live guild
// channels, tolerating channels renamed or deleted out-of-band.
package channels

// Role identifies what a provisioned channel is for, decoupled from its
// display name. Routing keys off the role; the conventional name is only a
// fallback lookup.
type Role int

const (
	ConsoleLog Role = iota
	Errors
	Failed
	Status
	BotStatus
)

// CategoryName is the container every provisioned channel lives under.
const CategoryName = "System Services Status"

// ManagerRoleName is the administrative role provisioning creates; holders
// may run the bot's mutating commands.
const ManagerRoleName = "System Services Manager"

// conventional display names, in provisioning order.
var roleNames = map[Role]string{
	ConsoleLog: "render-console-logs",
	Errors:     "render-errors",
	Failed:     "render-failed",
	Status:     "render-status",
	BotStatus:  "bot-status",
}

// ProvisionOrder is the fixed order channels are created in.
var ProvisionOrder = []Role{ConsoleLog, Errors, Failed, Status, BotStatus}

func (r Role) Name() string {
	return roleNames[r]
}

func (r Role) String() string {
	return r.Name()
}
