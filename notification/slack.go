package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"api-monitor/model"
)

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

type SlackSender struct {
	client *http.Client
}

func NewSlackSender(client *http.Client) *SlackSender {
	if client == nil {
		client = newWebhookClient()
	}
	return &SlackSender{client: client}
}

func (s *SlackSender) Type() model.ChannelType { return model.ChannelSlack }

func (s *SlackSender) Send(ctx context.Context, channel *model.NotificationChannel, alert Alert) error {
	webhookURL := channel.Config[model.ConfigWebhookURL]
	if webhookURL == "" {
		return errors.New("Slack webhook URL not configured")
	}
	return postJSON(ctx, s.client, webhookURL, "Slack", buildSlackMessage(alert))
}

func buildSlackMessage(alert Alert) slackMessage {
	emoji := ":large_green_circle:"
	if alert.Status == model.StatusDown {
		emoji = ":red_circle:"
	}
	return slackMessage{
		Text: alert.Message,
		Blocks: []slackBlock{
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("%s *%s* is *%s*", emoji, alert.MonitorName, alert.statusText())}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: alert.Message}},
			{Type: "context", Elements: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("_Sent at %s_", alert.SentAt.UTC().Format(time.RFC3339))}}},
		},
	}
}
