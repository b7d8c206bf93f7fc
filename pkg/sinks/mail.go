// Package sinks holds the delivery targets a finished run can push to:
// Graph sendMail, Teams webhooks, blob storage, and Log Analytics ingestion.
// Every sink honors dry-run by logging the intended effect and reporting
// success without sending anything.
package sinks

import (
	"context"
	"fmt"
	"log/slog"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
)

// Mailer sends HTML mail as a fixed sender through Graph sendMail.
type Mailer struct {
	client *msgraphsdk.GraphServiceClient
	sender string
	dryRun bool
}

func NewMailer(client *msgraphsdk.GraphServiceClient, sender string, dryRun bool) *Mailer {
	return &Mailer{
		client: client,
		sender: sender,
		dryRun: dryRun,
	}
}

// Send delivers one HTML message. Sent mail is not kept in the sender's
// Sent Items; these are bulk notifications, not correspondence.
func (m *Mailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return nil
	}

	if m.dryRun {
		slog.Info("dry-run: would send mail",
			"sender", m.sender,
			"recipients", len(to),
			"subject", subject)
		return nil
	}

	message := models.NewMessage()
	message.SetSubject(&subject)

	body := models.NewItemBody()
	contentType := models.HTML_BODYTYPE
	body.SetContent(&htmlBody)
	body.SetContentType(&contentType)
	message.SetBody(body)

	message.SetToRecipients(createRecipients(to))

	requestBody := users.NewItemSendMailPostRequestBody()
	requestBody.SetMessage(message)
	saveToSentItems := false
	requestBody.SetSaveToSentItems(&saveToSentItems)

	err := m.client.Users().ByUserId(m.sender).SendMail().Post(ctx, requestBody, nil)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}

func createRecipients(addresses []string) []models.Recipientable {
	recipients := make([]models.Recipientable, 0, len(addresses))
	for _, address := range addresses {
		address := address
		email := models.NewEmailAddress()
		email.SetAddress(&address)
		recipient := models.NewRecipient()
		recipient.SetEmailAddress(email)
		recipients = append(recipients, recipient)
	}
	return recipients
}
