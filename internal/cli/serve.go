package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/spf13/cobra"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/config"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/events"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/server"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/console"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/identifier"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage/dynamodb"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage/memory"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage/postgres"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the console API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(withLogger(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx = tflog.SetField(ctx, "backend", cfg.Storage.Backend)

	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}
	defer closeStore()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Events.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		tflog.Info(ctx, fmt.Sprintf("publishing record events to %s", cfg.Events.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			tflog.Warn(ctx, fmt.Sprintf("closing event publisher: %s", err.Error()))
		}
	}()

	ids := identifier.NewGenerator(store, cfg.Identifier.MaxAttempts, cfg.Identifier.MaxClaimAttempts)
	srv := server.New(console.New(store, ids, publisher))
	return srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.RowStorer, func(), error) {
	switch cfg.Backend {
	case config.BackendDynamoDB:
		var optFns []func(*awsdynamodb.Options)
		if cfg.DynamoDB.Endpoint != "" {
			optFns = append(optFns, func(o *awsdynamodb.Options) {
				o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
			})
		}
		client, err := dynamodb.NewClient(ctx,
			cfg.DynamoDB.Profile,
			cfg.DynamoDB.Region,
			cfg.DynamoDB.TableName,
			cfg.DynamoDB.KMSKeyARN,
			optFns...,
		)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				tflog.Warn(ctx, fmt.Sprintf("closing postgres: %s", err.Error()))
			}
		}, nil
	default:
		tflog.Warn(ctx, "using in-memory storage; records are lost on exit")
		return memory.New(), func() {}, nil
	}
}
