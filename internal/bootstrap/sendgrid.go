package bootstrap

import (
	"context"
	"fmt"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/sendgrid/sendgrid-go"

	"github.com/GregMSThompson/dockly/internal/config"
)

// InitSendgrid builds a SendGrid client from SENDGRIDAPIKEY, or from the
// Secret Manager secret named by SENDGRIDKEYSECRET. It returns nil when
// neither is set.
func InitSendgrid(ctx context.Context, cfg *config.Config) (*sendgrid.Client, error) {
	if cfg.SendgridAPIKey != "" {
		return sendgrid.NewSendClient(cfg.SendgridAPIKey), nil
	}
	if cfg.SendgridKeySecret == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	secretClient, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("while creating Secret Manager client: %w", err)
	}
	defer secretClient.Close()

	resp, err := secretClient.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", cfg.ProjectID, cfg.SendgridKeySecret),
	})
	if err != nil {
		return nil, fmt.Errorf("while pulling secret: %w", err)
	}

	return sendgrid.NewSendClient(string(resp.GetPayload().GetData())), nil
}
