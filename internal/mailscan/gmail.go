package mailscan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailMaxResults = 50

// GmailSource reads alerts through the Gmail REST API. Raw bodies arrive
// base64url-encoded.
type GmailSource struct {
	svc         *gmail.Service
	deliveredTo string
}

// NewGmailSource builds a source from an OAuth client-secrets file and a
// previously provisioned token file. Token provisioning (the browser consent
// flow) is a one-off setup step outside this process.
func NewGmailSource(ctx context.Context, credentialsFile, tokenFile, deliveredTo string) (*GmailSource, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("gmail credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("gmail credentials parse: %w", err)
	}

	tb, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("gmail token (run the auth setup first): %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tb, &tok); err != nil {
		return nil, fmt.Errorf("gmail token parse: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &GmailSource{svc: svc, deliveredTo: deliveredTo}, nil
}

func (g *GmailSource) ListRecent(ctx context.Context, window time.Duration) ([]Summary, error) {
	days := int(window.Hours() / 24)
	if days < 1 {
		days = 1
	}
	query := fmt.Sprintf("newer_than:%dd", days)
	if g.deliveredTo != "" {
		query += " to:" + g.deliveredTo
	}

	res, err := g.svc.Users.Messages.List("me").Q(query).MaxResults(gmailMaxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list: %w", err)
	}

	out := make([]Summary, 0, len(res.Messages))
	for _, m := range res.Messages {
		meta, err := g.svc.Users.Messages.Get("me", m.Id).
			Format("metadata").MetadataHeaders("Subject").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail get metadata %s: %w", m.Id, err)
		}

		s := Summary{ID: m.Id, Date: time.UnixMilli(meta.InternalDate)}
		if meta.Payload != nil {
			for _, h := range meta.Payload.Headers {
				if h.Name == "Subject" {
					s.Subject = h.Value
				}
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (g *GmailSource) RawBody(ctx context.Context, id string) (RawMessage, error) {
	msg, err := g.svc.Users.Messages.Get("me", id).Format("raw").Context(ctx).Do()
	if err != nil {
		return RawMessage{}, fmt.Errorf("gmail get raw %s: %w", id, err)
	}
	return RawMessage{Base64URL: msg.Raw}, nil
}
