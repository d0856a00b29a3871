package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	"firebase.google.com/go/v4/auth"
	"github.com/redis/go-redis/v9"
	"github.com/sendgrid/sendgrid-go"

	"github.com/GregMSThompson/dockly/internal/config"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

type Bootstrap struct {
	Log       *slog.Logger
	Firestore *firestore.Client
	Firebase  *auth.Client
	Bucket    *gcs.BucketHandle
	Redis     *redis.Client    // nil when REDISADDRESS is unset
	Sendgrid  *sendgrid.Client // nil when no key is configured
}

func Run(cfg *config.Config) (*Bootstrap, error) {
	var err error
	applicationCtx := context.Background()
	bs := new(Bootstrap)

	bs.Log = logger.New(cfg.LogLevel, logger.NewCloudRunHandler)
	bs.Firestore, err = InitFirestore(applicationCtx, cfg.ProjectID)
	if err != nil {
		return bs, err
	}
	bs.Firebase, bs.Bucket, err = InitFirebase(applicationCtx, cfg.ProjectID, cfg.StorageBucket)
	if err != nil {
		return bs, err
	}
	bs.Redis, err = InitRedis(applicationCtx, cfg.RedisAddress, cfg.RedisPassword)
	if err != nil {
		return bs, err
	}
	if bs.Redis == nil {
		bs.Log.Warn("REDISADDRESS not set, profile cache disabled")
	}
	bs.Sendgrid, err = InitSendgrid(applicationCtx, cfg)
	if err != nil {
		return bs, err
	}
	if bs.Sendgrid == nil {
		bs.Log.Warn("no SendGrid key configured, verification mail disabled")
	}

	return bs, nil
}

func (bs *Bootstrap) Close() error {
	var errList []error
	if bs.Firestore != nil {
		errList = append(errList, bs.Firestore.Close())
	}
	if bs.Redis != nil {
		errList = append(errList, bs.Redis.Close())
	}
	return errors.Join(errList...)
}
