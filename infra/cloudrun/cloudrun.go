package cloudrun

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pulumi/pulumi-docker/sdk/v4/go/docker"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/cloudrun"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/serviceaccount"
	gcpstorage "github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/storage"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/GregMSThompson/dockly/infra/common"
	"github.com/GregMSThompson/dockly/infra/redis"
	"github.com/GregMSThompson/dockly/infra/secret"
)

type secretRefs struct {
	sendgridKeyName pulumi.StringOutput
	redisAuthName   pulumi.StringOutput
}

func SetupCloudRun(ctx *pulumi.Context,
	prov *gcp.Provider,
	bucket *gcpstorage.Bucket,
	cache *redis.Cache,
	res ...pulumi.Resource) (*serviceaccount.Account, error) {
	img, err := buildApiImage(ctx, res...)
	if err != nil {
		return nil, err
	}

	srv, err := enableCloudRun(ctx, prov)
	if err != nil {
		return nil, err
	}

	apiSA, err := createServiceAccount(ctx, prov)
	if err != nil {
		return nil, err
	}

	secrets, err := secret.SetupSecretManager(ctx, prov, apiSA)
	if err != nil {
		return nil, err
	}

	sr, err := createSecrets(ctx, secrets, cache)
	if err != nil {
		return nil, err
	}

	deps := []pulumi.Resource{srv, secrets.Service(), bucket}
	if cache != nil {
		deps = append(deps, cache.Resources...)
	}
	svc, err := createCloudRunService(ctx, img, apiSA, sr, bucket, cache, prov, deps...)
	if err != nil {
		return nil, err
	}

	err = setIAMAccessPolicy(ctx, svc, prov)
	if err != nil {
		return nil, err
	}

	return apiSA, nil
}

func buildApiImage(ctx *pulumi.Context, res ...pulumi.Resource) (*docker.Image, error) {
	gcpCfg := config.New(ctx, "gcp")
	projectID := gcpCfg.Require("project")
	region := gcpCfg.Require("region")

	hash, err := common.GenerateHash("../")
	if err != nil {
		return nil, err
	}

	return docker.NewImage(ctx, "apiImage", &docker.ImageArgs{
		Build: docker.DockerBuildArgs{
			Platform:   pulumi.String("linux/amd64"),
			Context:    pulumi.String(".."),                    // build from repo root
			Dockerfile: pulumi.String("../cmd/api/Dockerfile"), // Dockerfile path relative to repo root
		},
		ImageName: pulumi.String(fmt.Sprintf("%s-docker.pkg.dev/%s/dockly/dockly-api:%s", region, projectID, hash)),
	},
		pulumi.DependsOn(res),
	)
}

func enableCloudRun(ctx *pulumi.Context, prov *gcp.Provider) (*projects.Service, error) {
	return projects.NewService(ctx, "cloudRunService", &projects.ServiceArgs{
		Service: pulumi.String("run.googleapis.com"),
	},
		pulumi.Provider(prov),
	)
}

func createServiceAccount(ctx *pulumi.Context, prov *gcp.Provider) (*serviceaccount.Account, error) {
	gcpCfg := config.New(ctx, "gcp")
	projectID := gcpCfg.Require("project")

	apiSA, err := serviceaccount.NewAccount(ctx, "apiServiceAccount", &serviceaccount.AccountArgs{
		AccountId:   pulumi.String("dockly-api"),
		DisplayName: pulumi.String("Dockly API Service Account"),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	member := apiSA.Email.ApplyT(func(email string) string {
		return fmt.Sprintf("serviceAccount:%s", email)
	}).(pulumi.StringOutput)

	roles := map[string]string{
		"firestoreAccess": "roles/datastore.user",                 // Firestore read/write
		"firebaseAuth":    "roles/firebaseauth.admin",             // user lookups and verification links
		"tokenCreator":    "roles/iam.serviceAccountTokenCreator", // signing for the Admin SDK
	}
	for name, role := range roles {
		_, err = projects.NewIAMMember(ctx, name, &projects.IAMMemberArgs{
			Role:    pulumi.String(role),
			Member:  member,
			Project: pulumi.String(projectID),
		},
			pulumi.Provider(prov),
		)
		if err != nil {
			return nil, err
		}
	}

	return apiSA, nil
}

func createCloudRunService(ctx *pulumi.Context,
	img *docker.Image,
	apiSA *serviceaccount.Account,
	sr *secretRefs,
	bucket *gcpstorage.Bucket,
	cache *redis.Cache,
	prov *gcp.Provider,
	res ...pulumi.Resource) (*cloudrun.Service, error) {
	gcpCfg := config.New(ctx, "gcp")
	crCfg := config.New(ctx, "cloudrun")
	docklyCfg := config.New(ctx, "dockly")

	projectID := gcpCfg.Require("project")
	region := gcpCfg.Require("region")
	minScale := crCfg.Require("minScale")
	maxScale := crCfg.Require("maxScale")
	cpu := crCfg.Require("cpu")
	memory := crCfg.Require("memory")
	concurrency := crCfg.Require("concurrency")
	logLevel := crCfg.Require("logLevel")
	timeout, _ := strconv.Atoi(crCfg.Require("timeout"))
	mailFrom := docklyCfg.Require("mailFrom")
	continueURL := docklyCfg.Get("verifyContinueUrl")
	cacheTTL := docklyCfg.Get("profileCacheTtl")

	var origins []string
	_ = docklyCfg.TryObject("allowedOrigins", &origins)

	annotations := pulumi.StringMap{
		// Autoscaling bounds
		"autoscaling.knative.dev/minScale": pulumi.String(minScale),
		"autoscaling.knative.dev/maxScale": pulumi.String(maxScale),

		// Instance sizing
		"run.googleapis.com/cpu":    pulumi.String(cpu),
		"run.googleapis.com/memory": pulumi.String(memory),

		// Allow throttling when idle (reduces cost)
		"run.googleapis.com/cpu-throttling": pulumi.String("true"),

		// Set the number of concurrent requests per container
		"run.googleapis.com/container-concurrency": pulumi.String(concurrency),
	}

	envs := cloudrun.ServiceTemplateSpecContainerEnvArray{
		plainEnv("PROJECTID", pulumi.String(projectID)),
		plainEnv("REGION", pulumi.String(region)),
		plainEnv("LOGLEVEL", pulumi.String(logLevel)),
		plainEnv("STORAGEBUCKET", bucket.Name),
		plainEnv("MAILFROM", pulumi.String(mailFrom)),
		plainEnv("SENDGRIDKEYSECRET", sr.sendgridKeyName),
	}
	if continueURL != "" {
		envs = append(envs, plainEnv("VERIFYCONTINUEURL", pulumi.String(continueURL)))
	}
	if cacheTTL != "" {
		envs = append(envs, plainEnv("PROFILECACHETTL", pulumi.String(cacheTTL)))
	}
	if len(origins) > 0 {
		envs = append(envs, plainEnv("ALLOWEDORIGINS", pulumi.String(strings.Join(origins, ","))))
	}
	if cache != nil {
		// reach Memorystore over the serverless VPC connector
		annotations["run.googleapis.com/vpc-access-connector"] = cache.Connector
		annotations["run.googleapis.com/vpc-access-egress"] = pulumi.String("private-ranges-only")

		envs = append(envs,
			plainEnv("REDISADDRESS", cache.Address),
			secretEnv("REDISPASSWORD", sr.redisAuthName),
		)
	}

	return cloudrun.NewService(ctx, "apiService", &cloudrun.ServiceArgs{
		Location: pulumi.String(region),

		Template: &cloudrun.ServiceTemplateArgs{
			Metadata: &cloudrun.ServiceTemplateMetadataArgs{
				Annotations: annotations,
			},

			Spec: &cloudrun.ServiceTemplateSpecArgs{
				ServiceAccountName: apiSA.Email,
				TimeoutSeconds:     pulumi.Int(timeout),

				Containers: cloudrun.ServiceTemplateSpecContainerArray{
					&cloudrun.ServiceTemplateSpecContainerArgs{
						Image: img.ImageName,
						Ports: cloudrun.ServiceTemplateSpecContainerPortArray{
							&cloudrun.ServiceTemplateSpecContainerPortArgs{
								ContainerPort: pulumi.Int(8080),
							},
						},
						Envs: envs,
					},
				},
			},
		},
	},
		pulumi.Provider(prov),
		pulumi.DependsOn(res),
	)
}

func plainEnv(name string, value pulumi.StringInput) *cloudrun.ServiceTemplateSpecContainerEnvArgs {
	return &cloudrun.ServiceTemplateSpecContainerEnvArgs{
		Name:  pulumi.String(name),
		Value: value,
	}
}

func secretEnv(name string, secretName pulumi.StringInput) *cloudrun.ServiceTemplateSpecContainerEnvArgs {
	return &cloudrun.ServiceTemplateSpecContainerEnvArgs{
		Name: pulumi.String(name),
		ValueFrom: &cloudrun.ServiceTemplateSpecContainerEnvValueFromArgs{
			SecretKeyRef: &cloudrun.ServiceTemplateSpecContainerEnvValueFromSecretKeyRefArgs{
				Name: secretName,
				Key:  pulumi.String("latest"),
			},
		},
	}
}

func setIAMAccessPolicy(ctx *pulumi.Context, svc *cloudrun.Service, prov *gcp.Provider) error {
	gcpCfg := config.New(ctx, "gcp")
	region := gcpCfg.Require("region")

	// The marker list is public; writes are checked by the API against
	// Firebase ID tokens.
	_, err := cloudrun.NewIamMember(ctx, "publicInvoker", &cloudrun.IamMemberArgs{
		Service:  svc.Name,
		Location: pulumi.String(region),
		Role:     pulumi.String("roles/run.invoker"),
		Member:   pulumi.String("allUsers"),
	},
		pulumi.Provider(prov),
	)
	return err
}

func createSecrets(ctx *pulumi.Context, secrets *secret.Manager, cache *redis.Cache) (*secretRefs, error) {
	var err error
	sr := new(secretRefs)

	sendgridCfg := config.New(ctx, "sendgrid")
	apiKey := sendgridCfg.RequireSecret("apiKey")

	sr.sendgridKeyName, err = secrets.Add(ctx, "sendgridKeySecret", "sendgridApiKey", apiKey)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		sr.redisAuthName, err = secrets.Add(ctx, "redisAuthSecret", "redisAuth", cache.Auth)
		if err != nil {
			return nil, err
		}
	}

	return sr, nil
}
