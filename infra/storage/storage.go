package storage

import (
	"fmt"

	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/serviceaccount"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/storage"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

// SetupImageBucket creates the bucket that holds marker and profile images.
func SetupImageBucket(ctx *pulumi.Context, prov *gcp.Provider) (*storage.Bucket, error) {
	svc, err := projects.NewService(ctx, "storageService", &projects.ServiceArgs{
		Service: pulumi.String("storage.googleapis.com"),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	gcpCfg := config.New(ctx, "gcp")
	docklyCfg := config.New(ctx, "dockly")
	projectID := gcpCfg.Require("project")
	region := gcpCfg.Require("region")

	origins := pulumi.StringArray{pulumi.String("*")}
	var configured []string
	if err := docklyCfg.TryObject("allowedOrigins", &configured); err == nil && len(configured) > 0 {
		origins = pulumi.ToStringArray(configured)
	}

	return storage.NewBucket(ctx, "imageBucket", &storage.BucketArgs{
		Name:                     pulumi.String(fmt.Sprintf("%s-dockly-images", projectID)),
		Location:                 pulumi.String(region),
		UniformBucketLevelAccess: pulumi.Bool(true),
		Cors: storage.BucketCorArray{
			&storage.BucketCorArgs{
				Origins:         origins,
				Methods:         pulumi.StringArray{pulumi.String("GET"), pulumi.String("HEAD")},
				ResponseHeaders: pulumi.StringArray{pulumi.String("Content-Type")},
				MaxAgeSeconds:   pulumi.Int(3600),
			},
		},
	},
		pulumi.Provider(prov),
		pulumi.DependsOn([]pulumi.Resource{svc}),
	)
}

// GrantObjectAdmin lets the API write image objects and their metadata.
func GrantObjectAdmin(ctx *pulumi.Context, prov *gcp.Provider, bucket *storage.Bucket, apiSA *serviceaccount.Account) error {
	_, err := storage.NewBucketIAMMember(ctx, "imageBucketWriter", &storage.BucketIAMMemberArgs{
		Bucket: bucket.Name,
		Role:   pulumi.String("roles/storage.objectAdmin"),
		Member: apiSA.Email.ApplyT(func(email string) string {
			return fmt.Sprintf("serviceAccount:%s", email)
		}).(pulumi.StringOutput),
	},
		pulumi.Provider(prov),
	)
	return err
}
