// Package notifier formats and sends Discord messages for relayed deploy
// events. It owns embed layout so routing code stays free of presentation.
package notifier

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	colorFailure = 0xED4245
	colorNormal  = 0x57F287
)

// Sender is the message-sending slice of the platform SDK. Satisfied by
// *discordgo.Session.
type Sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DeployEvent is the subset of an inbound event the notifier renders.
type DeployEvent struct {
	Type      string
	Timestamp string
	ServiceID string
	Service   string
	DeployID  string
	Region    string
	Failure   bool
}

// SendDeployEvent posts the formatted embed for one deploy event.
func SendDeployEvent(s Sender, channelID string, ev DeployEvent) error {
	color := colorNormal
	title := fmt.Sprintf("🚀 %s", ev.Type)
	if ev.Failure {
		color = colorFailure
		title = fmt.Sprintf("🔥 %s", ev.Type)
	}

	fields := []*discordgo.MessageEmbedField{}
	if ev.Service != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Service", Value: ev.Service, Inline: true,
		})
	}
	if ev.ServiceID != "" && ev.ServiceID != ev.Service {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Service ID", Value: fmt.Sprintf("`%s`", ev.ServiceID), Inline: true,
		})
	}
	if ev.DeployID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Deploy", Value: fmt.Sprintf("`%s`", ev.DeployID), Inline: true,
		})
	}
	if ev.Region != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Region", Value: ev.Region, Inline: true,
		})
	}
	if ev.Timestamp != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Timestamp", Value: ev.Timestamp, Inline: false,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:  title,
		Color:  color,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Render Deploy Relay",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	_, err := s.ChannelMessageSendEmbed(channelID, embed)
	return err
}
