package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"milkledger/internal/amqp"
	"milkledger/internal/backend"
	"milkledger/internal/cli"
	"milkledger/internal/config"
	"milkledger/internal/log"
	"milkledger/internal/report"
	"milkledger/internal/sheets/google"
	"milkledger/internal/worker"
)

func main() {
	configPath := flag.String("config", "milkledger.yaml", "path to an optional YAML config file")
	once := flag.Bool("once", false, "publish the report once and exit")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(*configPath)
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)

	sinks, err := buildSinks(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize report sinks", "error", err)
		os.Exit(1)
	}
	if len(sinks) == 0 {
		logger.Error("No report sink configured; set GOOGLE_SPREADSHEET_ID or REPORT_CSV_PATH")
		os.Exit(1)
	}

	// The worker only reads the ledger, so it never publishes changes itself.
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	bcfg.Notify = backend.NotifyNone
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	sync := worker.NewReportSync(res.Store, cfg.LedgerSlot, sinks...)

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := sync.Sync(ctx)
		cancel()
		_ = res.Close()
		if err != nil {
			logger.Error("Report publish failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Report published", "sinks", sync.Sinks())
		return
	}

	var scheduler *worker.Scheduler
	if cfg.ReportCronSchedule != "" {
		scheduler, err = worker.NewScheduler(cfg.ReportCronSchedule, sync)
		if err != nil {
			logger.Error("Invalid report schedule", "error", err)
			os.Exit(1)
		}
	}

	var consumer *amqp.Client
	if cfg.NotifyBackend == config.NotifyAMQP {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.LedgerSlot)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if scheduler != nil {
			scheduler.Stop(ctx)
		}
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting ledger worker",
		log.FieldSlot, cfg.LedgerSlot,
		"sinks", sync.Sinks(),
		"schedule", cfg.ReportCronSchedule,
		"notify", cfg.NotifyBackend)

	// Publish once at start-up so sinks reflect the ledger before the first trigger.
	if err := sync.Sync(ctx); err != nil {
		logger.Warn("Initial report publish failed", "error", err)
	}

	if scheduler != nil {
		if err := scheduler.Start(); err != nil {
			logger.Error("Failed to start report scheduler", "error", err)
			os.Exit(1)
		}
	}

	if consumer != nil {
		go func() {
			err := consumer.ConsumeChanges(ctx, sync.HandleChange)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.WithComponent(log.ComponentAMQP).Error("Change consumer stopped", "error", err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Ledger worker stopped gracefully")
}

func buildSinks(ctx context.Context, cfg *config.Config, logger *log.Logger) ([]report.Sink, error) {
	var sinks []report.Sink
	if cfg.HasSheetsSink() {
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleReportSheetName,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		})
		if err != nil {
			return nil, err
		}
		logger.WithComponent(log.ComponentSheets).Info("Google Sheets sink enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleReportSheetName,
			log.FieldSink, client.Name())
		sinks = append(sinks, client)
	}
	if cfg.ReportCSVPath != "" {
		logger.Info("CSV snapshot sink enabled", "path", cfg.ReportCSVPath, log.FieldSink, worker.CSVSinkName)
		sinks = append(sinks, worker.NewCSVFileSink(cfg.ReportCSVPath))
	}
	return sinks, nil
}
