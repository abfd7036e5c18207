package events

import (
	"context"
	"fmt"
	"strconv"

	"github.com/slack-go/slack"
)

// SlackSink posts moderation-relevant events to an incoming webhook.
type SlackSink struct {
	webhookURL string
	siteURL    string
}

// NewSlackSink returns a sink posting to webhookURL. Links point at siteURL.
func NewSlackSink(webhookURL, siteURL string) *SlackSink {
	return &SlackSink{webhookURL: webhookURL, siteURL: siteURL}
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Deliver(ctx context.Context, ev ContentEvent) error {
	var color, headline string
	switch ev.Type {
	case Submitted:
		color, headline = "#f2c744", "New submission awaiting review"
	case Degraded:
		color, headline = "#d40e0d", "Submission could not be persisted"
	case Approved:
		color, headline = "#2eb886", "Listing approved"
	default:
		return nil
	}

	attachment := slack.Attachment{
		Color: color,
		Title: ev.Title,
		Fields: []slack.AttachmentField{
			{Title: "Type", Value: string(ev.Kind), Short: true},
			{Title: "Status", Value: string(ev.Status), Short: true},
			{Title: "Submitted by", Value: submitter(ev.CreatedBy), Short: true},
		},
	}
	if s.siteURL != "" && ev.Slug != "" {
		attachment.TitleLink = fmt.Sprintf("%s/%s/%s", s.siteURL, ev.Kind, ev.Slug)
	}
	if ev.URL != "" {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{Title: "Link", Value: ev.URL})
	}

	return slack.PostWebhookContext(ctx, s.webhookURL, &slack.WebhookMessage{
		Text:        headline,
		Attachments: []slack.Attachment{attachment},
	})
}

func submitter(userID uint) string {
	if userID == 0 {
		return "anonymous"
	}
	return "user #" + strconv.FormatUint(uint64(userID), 10)
}
