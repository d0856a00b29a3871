package bootstrap

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

// InitFirebase returns the Auth client and the image bucket. An empty bucket
// name selects the project's default bucket.
func InitFirebase(ctx context.Context, projectID, bucket string) (*auth.Client, *gcs.BucketHandle, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     projectID,
		StorageBucket: bucket,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("while initializing firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("while creating auth client: %w", err)
	}

	storageClient, err := app.Storage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("while creating storage client: %w", err)
	}
	handle, err := storageClient.DefaultBucket()
	if err != nil {
		return nil, nil, fmt.Errorf("while resolving storage bucket: %w", err)
	}

	return authClient, handle, nil
}
