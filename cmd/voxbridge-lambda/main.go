// Voxbridge-lambda runs the action dispatch proxy as an AWS Lambda function
// behind an API Gateway proxy integration.
//
// Configuration is read the same way as the daemon; VOXBRIDGE_* environment
// variables are the usual source. Credentials may be "ssm:/name" references.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/nadzzz/voxbridge/internal/config"
	"github.com/nadzzz/voxbridge/internal/dispatch"
	"github.com/nadzzz/voxbridge/internal/paramstore"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("VOXBRIDGE_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	config.SetupLogging(cfg.Logging)

	if cfg.HasSecretRefs() {
		store, err := paramstore.NewFromEnvironment(ctx)
		if err != nil {
			slog.Error("failed to create SSM client", "error", err)
			os.Exit(1)
		}
		if err := cfg.ResolveSecrets(ctx, store); err != nil {
			slog.Error("failed to resolve secrets", "error", err)
			os.Exit(1)
		}
	}

	proxy, err := dispatch.New(cfg.Proxy)
	if err != nil {
		slog.Error("failed to create action proxy", "error", err)
		os.Exit(1)
	}

	lambda.Start(proxy.HandleAPIGateway)
}
