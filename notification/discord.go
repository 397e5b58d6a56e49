package notification

import (
	"context"
	"errors"
	"net/http"
	"time"

	"api-monitor/model"

	"github.com/bwmarrin/discordgo"
)

const (
	discordColorDown = 0xff0000
	discordColorUp   = 0x00ff00
	discordFooter    = "API Monitor"
)

// DiscordSender posts embeds to a Discord channel webhook.
type DiscordSender struct {
	client *http.Client
}

func NewDiscordSender(client *http.Client) *DiscordSender {
	if client == nil {
		client = newWebhookClient()
	}
	return &DiscordSender{client: client}
}

func (s *DiscordSender) Type() model.ChannelType { return model.ChannelDiscord }

func (s *DiscordSender) Send(ctx context.Context, channel *model.NotificationChannel, alert Alert) error {
	webhookURL := channel.Config[model.ConfigWebhookURL]
	if webhookURL == "" {
		return errors.New("Discord webhook URL not configured")
	}
	return postJSON(ctx, s.client, webhookURL, "Discord", buildDiscordParams(alert))
}

func buildDiscordParams(alert Alert) *discordgo.WebhookParams {
	color := discordColorUp
	if alert.Status == model.StatusDown {
		color = discordColorDown
	}
	return &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       alert.MonitorName + " is " + alert.statusText(),
			Description: alert.Message,
			Color:       color,
			Timestamp:   alert.SentAt.UTC().Format(time.RFC3339),
			Footer:      &discordgo.MessageEmbedFooter{Text: discordFooter},
		}},
	}
}
