package firestore

import (
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/firestore"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

// SetupFirestore enables Firestore and creates the default database that
// holds the markers and users collections.
func SetupFirestore(ctx *pulumi.Context, prov *gcp.Provider) error {
	svc, err := projects.NewService(ctx, "firestore", &projects.ServiceArgs{
		Service: pulumi.String("firestore.googleapis.com"),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return err
	}

	gcpCfg := config.New(ctx, "gcp")
	docklyCfg := config.New(ctx, "dockly")
	projectID := gcpCfg.Require("project")
	region := gcpCfg.Require("region")

	protection := "DELETE_PROTECTION_ENABLED"
	if docklyCfg.GetBool("disposable") {
		protection = "DELETE_PROTECTION_DISABLED"
	}

	_, err = firestore.NewDatabase(ctx, "firestoreDatabase", &firestore.DatabaseArgs{
		Project:    pulumi.String(projectID),
		Name:       pulumi.String("(default)"),
		LocationId: pulumi.String(region),
		Type:       pulumi.String("FIRESTORE_NATIVE"),
		// marker creation increments the contributor's counter in a transaction
		ConcurrencyMode:       pulumi.String("OPTIMISTIC"),
		DeleteProtectionState: pulumi.String(protection),
	},
		pulumi.Provider(prov),
		pulumi.DependsOn([]pulumi.Resource{svc}),
	)
	return err
}
