package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/counciljobs/ingestion-service/common/config"
	"github.com/counciljobs/ingestion-service/common/db"
	"github.com/counciljobs/ingestion-service/common/fetch"
	"github.com/counciljobs/ingestion-service/common/logger"
	"github.com/counciljobs/ingestion-service/common/messaging"
	"github.com/counciljobs/ingestion-service/common/runstate"
	"github.com/counciljobs/ingestion-service/common/storage"
	"github.com/counciljobs/ingestion-service/pipeline/extract"
	"github.com/counciljobs/ingestion-service/pipeline/ingest"
	"github.com/counciljobs/ingestion-service/pipeline/orchestrate"
	"github.com/counciljobs/ingestion-service/pipeline/publish"
	"github.com/counciljobs/ingestion-service/pipeline/source"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/joho/godotenv"

	_ "github.com/counciljobs/ingestion-service/docs"
)

// @title          Council Jobs Ingestion Service API
// @version        1.0
// @description    API documentation for the council jobs ingestion service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @host     localhost:8080
// @BasePath /v1
// @schemes  http https

// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       X-API-KEY

func main() {
	runSource := flag.String("source", "", "run a single named source once and exit")
	runAll := flag.Bool("all", false, "run every active source once and exit")
	dryRun := flag.Bool("dry-run", false, "skip the publish fan-out during a one-shot run")
	sweep := flag.Bool("sweep", false, "expire jobs past their deadline once and exit")
	flag.Parse()

	// INITIATE CONFIGURATION
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("Error loading .env file, using environment variables")
	}

	cfg := config.DefaultConfig()
	cfg.LoadFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// INITIATE DATABASES
	dbConn, err := db.SetupDatabase(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup database")
	}
	defer dbConn.Close()

	// Initialize zerolog database hooks
	logger.InitializeLogging(dbConn)

	// INITIATE NATS CLIENT
	natsClient, err := messaging.SetupNatsBroker(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup NATS client")
	}
	defer natsClient.Close()

	if _, err := natsClient.CreateStream(ctx, jetstream.StreamConfig{
		Name:      "RUNS",
		Subjects:  []string{"runs.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to create runs stream")
	}

	// Snapshot storage is optional; without a bucket the pipeline skips
	// snapshot uploads.
	var snapshots storage.SnapshotStore
	if cfg.GCS.Bucket != "" {
		snapshots, err = storage.NewGCSStorage(ctx, storage.GCSConfig{
			ProjectID:       cfg.GCS.ProjectID,
			CredentialsFile: cfg.GCS.CredentialsFile,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup GCS storage")
		}
	}

	// INITIATE PIPELINE
	fetcher := fetch.NewFetcher(cfg.Fetcher)
	defer fetcher.Close()

	engineOpts := []ingest.EngineOption{}
	if snapshots != nil {
		engineOpts = append(engineOpts, ingest.WithSnapshots(snapshots, cfg.GCS.Bucket))
	}

	orch := orchestrate.New(orchestrate.Deps{
		Registry:  source.NewRegistry(dbConn.Queries),
		Extractor: extract.NewExtractor(fetcher),
		Engine:    ingest.NewEngine(dbConn.Queries, engineOpts...),
		Publisher: publish.NewPublisher(dbConn.Queries, publish.NewTokenCache(dbConn.Redis), cfg.Pipeline.PublicBaseURL, cfg.Pipeline.PublishRetries),
		Store:     dbConn.Queries,
		Locks:     runstate.NewManager(dbConn.Redis),
		Broker:    natsClient,
		Events:    logger.NewRunLogService(dbConn),
	}, cfg.Pipeline.MaxSourceConc, cfg.Pipeline.MaxPagesPerRun)

	// One-shot CLI modes run the pipeline directly and exit.
	if *sweep {
		expired, err := orch.SweepExpired(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Sweep failed")
		}
		log.Info().Int64("expired", expired).Msg("Sweep completed")
		return
	}
	if *runAll || *runSource != "" {
		summary, err := orch.Run(ctx, orchestrate.Options{Source: *runSource, DryRun: *dryRun})
		if err != nil {
			log.Fatal().Err(err).Str("run_id", summary.RunID).Msg("Run failed")
		}
		log.Info().
			Str("run_id", summary.RunID).
			Str("status", summary.Status).
			Msg("Run completed")
		return
	}

	// Consume run triggers in a queue group so each trigger is processed by
	// exactly one instance.
	sub, err := natsClient.SubscribeToQueueGroup(messaging.SubjectRunTrigger, messaging.RunTriggerQueueGroup, func(msg *nats.Msg) error {
		var req messaging.RunRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return fmt.Errorf("decoding run request: %w", err)
		}

		log.Info().Str("request_id", req.ID).Str("source", req.Source).Msg("Run trigger received")

		go func() {
			summary, err := orch.Run(ctx, orchestrate.Options{Source: req.Source, DryRun: req.DryRun})
			if err != nil {
				log.Error().Err(err).Str("request_id", req.ID).Msg("Triggered run failed")
				return
			}
			log.Info().
				Str("request_id", req.ID).
				Str("run_id", summary.RunID).
				Str("status", summary.Status).
				Msg("Triggered run finished")
		}()
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to run triggers")
	}
	defer sub.Unsubscribe()

	// INITIATE SCHEDULER
	if cfg.Scheduler.Enabled {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.Scheduler.RunSpec, func() {
			summary, err := orch.Run(ctx, orchestrate.Options{})
			if err != nil {
				log.Error().Err(err).Msg("Scheduled run failed")
				return
			}
			log.Info().Str("run_id", summary.RunID).Str("status", summary.Status).Msg("Scheduled run finished")
		}); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule runs")
		}
		if _, err := scheduler.AddFunc(cfg.Scheduler.SweepSpec, func() {
			expired, err := orch.SweepExpired(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Scheduled sweep failed")
				return
			}
			if expired > 0 {
				log.Info().Int64("expired", expired).Msg("Scheduled sweep expired jobs")
			}
		}); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule sweeps")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// INITIATE SERVER
	server, err := NewAppHttpServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create the server")
	}

	server.SetDB(dbConn)
	server.SetNatsClient(natsClient)
	server.setupRoute()

	go func() {
		if err := server.start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			cancel()
		}
	}()

	log.Info().Str("address", cfg.Listen.Addr()).Msg("Server started successfully")
	log.Info().Str("swagger", fmt.Sprintf("http://%s/swagger/index.html", cfg.Listen.Addr())).Msg("Swagger documentation available at")

	// Wait for shutdown signal
	select {
	case <-shutdown:
		log.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server gracefully stopped")
}
