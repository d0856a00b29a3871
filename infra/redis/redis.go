package redis

import (
	"fmt"

	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/redis"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/vpcaccess"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

// Cache is the Memorystore instance backing the profile cache and the
// connector Cloud Run reaches it through.
type Cache struct {
	Address   pulumi.StringOutput
	Auth      pulumi.StringOutput
	Connector pulumi.StringOutput
	Resources []pulumi.Resource
}

// SetupRedis returns nil unless dockly:redis is true. The API runs without
// a profile cache when REDISADDRESS is unset.
func SetupRedis(ctx *pulumi.Context, prov *gcp.Provider) (*Cache, error) {
	docklyCfg := config.New(ctx, "dockly")
	if !docklyCfg.GetBool("redis") {
		return nil, nil
	}

	gcpCfg := config.New(ctx, "gcp")
	region := gcpCfg.Require("region")

	var services []pulumi.Resource
	for _, api := range []string{"redis.googleapis.com", "vpcaccess.googleapis.com"} {
		svc, err := projects.NewService(ctx, api, &projects.ServiceArgs{
			Service: pulumi.String(api),
		},
			pulumi.Provider(prov),
		)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}

	inst, err := redis.NewInstance(ctx, "profileCache", &redis.InstanceArgs{
		Name:         pulumi.String("dockly-profile-cache"),
		Region:       pulumi.String(region),
		Tier:         pulumi.String("BASIC"),
		MemorySizeGb: pulumi.Int(1),
		AuthEnabled:  pulumi.Bool(true),
	},
		pulumi.Provider(prov),
		pulumi.DependsOn(services),
	)
	if err != nil {
		return nil, err
	}

	conn, err := vpcaccess.NewConnector(ctx, "apiConnector", &vpcaccess.ConnectorArgs{
		Name:        pulumi.String("dockly-connector"),
		Region:      pulumi.String(region),
		Network:     pulumi.String("default"),
		IpCidrRange: pulumi.String("10.8.0.0/28"),
	},
		pulumi.Provider(prov),
		pulumi.DependsOn(services),
	)
	if err != nil {
		return nil, err
	}

	addr := pulumi.All(inst.Host, inst.Port).ApplyT(func(args []interface{}) string {
		return fmt.Sprintf("%s:%d", args[0].(string), args[1].(int))
	}).(pulumi.StringOutput)

	return &Cache{
		Address:   addr,
		Auth:      inst.AuthString,
		Connector: conn.Name,
		Resources: []pulumi.Resource{inst, conn},
	}, nil
}
