package provision

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"render-relay/internal/channels"
)

// Step names, in execution order.
const (
	StepPermissionCheck = "permission-check"
	StepWebhookCreate   = "webhook-create"
	StepCategoryCreate  = "category-create"
	StepChannelsCreate  = "channels-create"
	StepRoleCreate      = "role-create"
	StepRoleAssign      = "role-assign"
	StepSummarize       = "summarize"
)

// StepResult records one provisioning step's outcome. A step either
// succeeded with a detail string or failed with an error; a failed step
// never stops the run.
type StepResult struct {
	Step   string
	Detail string
	Err    error
}

func ok(step, format string, args ...interface{}) StepResult {
	return StepResult{Step: step, Detail: fmt.Sprintf(format, args...)}
}

func failed(step string, err error) StepResult {
	return StepResult{Step: step, Err: err}
}

func (r StepResult) Outcome() string {
	if r.Err != nil {
		return fmt.Sprintf("failed: %v", r.Err)
	}
	return r.Detail
}

// Report collects everything one provisioning run produced. It is
// ephemeral; durable outcomes live in the settings store.
type Report struct {
	GuildID   string
	GuildName string
	StartedAt time.Time

	Steps []StepResult

	Category    *discordgo.Channel
	Channels    map[channels.Role]*discordgo.Channel
	ManagerRole *discordgo.Role
	Webhook     *discordgo.Webhook
}

func (r *Report) record(res StepResult) {
	r.Steps = append(r.Steps, res)
}

// Failures returns the step results that ended in an error.
func (r *Report) Failures() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// AuditBlock renders the run as the multi-line text posted to the guild's
// console-logs channel.
func (r *Report) AuditBlock() string {
	block := "```\n── provisioning report ──\n"
	block += fmt.Sprintf("guild: %s (%s)\n", r.GuildName, r.GuildID)
	block += fmt.Sprintf("time:  %s\n", r.StartedAt.UTC().Format(time.RFC3339))
	for _, s := range r.Steps {
		mark := "✔"
		if s.Err != nil {
			mark = "✘"
		}
		block += fmt.Sprintf("%s %-17s %s\n", mark, s.Step, s.Outcome())
	}
	block += "```"
	return block
}
