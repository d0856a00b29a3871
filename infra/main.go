package main

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/GregMSThompson/dockly/infra/cloudrun"
	"github.com/GregMSThompson/dockly/infra/docker"
	"github.com/GregMSThompson/dockly/infra/firestore"
	"github.com/GregMSThompson/dockly/infra/identity"
	"github.com/GregMSThompson/dockly/infra/provider"
	"github.com/GregMSThompson/dockly/infra/redis"
	"github.com/GregMSThompson/dockly/infra/storage"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		// set default provider with the correct project
		prov, err := provider.SetupDefaultProvider(ctx)
		if err != nil {
			return err
		}

		// enable identity service to allow using firebase
		ident, err := identity.SetupIdentity(ctx, prov)
		if err != nil {
			return err
		}

		// enable firestore and create a database for the project
		err = firestore.SetupFirestore(ctx, prov)
		if err != nil {
			return err
		}

		// marker and profile images
		bucket, err := storage.SetupImageBucket(ctx, prov)
		if err != nil {
			return err
		}

		// optional profile cache
		cache, err := redis.SetupRedis(ctx, prov)
		if err != nil {
			return err
		}

		// create docker repo
		repo, err := docker.CreateCloudrunRepo(ctx, prov)
		if err != nil {
			return err
		}

		apiSA, err := cloudrun.SetupCloudRun(ctx, prov, bucket, cache, ident, repo)
		if err != nil {
			return err
		}

		if err := storage.GrantObjectAdmin(ctx, prov, bucket, apiSA); err != nil {
			return err
		}

		ctx.Export("apiServiceAccount", apiSA.Email)
		ctx.Export("imageBucket", bucket.Name)
		return nil
	})
}
