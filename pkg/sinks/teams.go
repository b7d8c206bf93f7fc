package sinks

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
)

// TeamsWebhook posts MessageCard alerts to a Teams incoming webhook. The
// webhook URL carries its own secret, so the underlying client is built
// without a token and sends no Authorization header.
type TeamsWebhook struct {
	client *graph.Client
	url    string
	dryRun bool
}

func NewTeamsWebhook(webhookURL string, dryRun bool, opts ...graph.ClientOption) *TeamsWebhook {
	return &TeamsWebhook{
		client: graph.NewClient("", opts...),
		url:    webhookURL,
		dryRun: dryRun,
	}
}

type messageCard struct {
	Type       string        `json:"@type"`
	Context    string        `json:"@context"`
	ThemeColor string        `json:"themeColor"`
	Summary    string        `json:"summary"`
	Title      string        `json:"title"`
	Text       string        `json:"text,omitempty"`
	Sections   []cardSection `json:"sections,omitempty"`
}

type cardSection struct {
	Facts []cardFact `json:"facts"`
}

type cardFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Post sends one card. Facts become the card's name/value rows.
func (t *TeamsWebhook) Post(ctx context.Context, title, text string, facts map[string]string) error {
	if t.dryRun {
		slog.Info("dry-run: would post Teams alert", "title", title, "facts", len(facts))
		return nil
	}

	card := messageCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: "D70000",
		Summary:    title,
		Title:      title,
		Text:       text,
	}
	if len(facts) > 0 {
		names := make([]string, 0, len(facts))
		for name := range facts {
			names = append(names, name)
		}
		sort.Strings(names)

		section := cardSection{}
		for _, name := range names {
			section.Facts = append(section.Facts, cardFact{Name: name, Value: facts[name]})
		}
		card.Sections = []cardSection{section}
	}

	spec := graph.RequestSpec{
		Method: http.MethodPost,
		URL:    t.url,
		Body:   card,
	}
	_, err := t.client.Do(ctx, spec)
	return err
}
