package sendgridclient

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type Adapter struct {
	client   sender
	from     string
	fromName string
	log      *slog.Logger
}

func NewAdapter(log *slog.Logger, client sender, from string) *Adapter {
	return &Adapter{
		client:   client,
		from:     from,
		fromName: "Dockly",
		log:      log,
	}
}

const verificationPlain = `Hi{{if .Name}} {{.Name}}{{end}},

Confirm your email address to start adding bike lock stations to Dockly:

{{.Link}}

If you did not create a Dockly account you can ignore this message.
`

var verificationTemplate = template.Must(template.New("verification").Parse(verificationPlain))

// SendVerification mails the email verification link to the given address.
func (a *Adapter) SendVerification(ctx context.Context, to, name, link string) error {
	if a.from == "" {
		return fmt.Errorf("mail sender address is not configured")
	}

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(a.fromName, a.from))
	message.Subject = "Verify your Dockly email"

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(name, to))
	message.AddPersonalizations(personalization)

	body := &bytes.Buffer{}
	if err := verificationTemplate.Execute(body, struct{ Name, Link string }{name, link}); err != nil {
		return fmt.Errorf("while templating verification email: %w", err)
	}
	message.AddContent(mail.NewContent("text/plain", body.String()))

	resp, err := a.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("while sending mail through SendGrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2XX response while sending mail through SendGrid: %d %s", resp.StatusCode, resp.Body)
	}

	if a.log != nil {
		a.log.DebugContext(ctx, "verification mail accepted", "status", resp.StatusCode)
	}
	return nil
}
