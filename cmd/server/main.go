// Package main is the entry point for the AlphaHunter A-share scanning
// service: one binary hosting the REST/websocket API and the periodic
// scan, sync and backup jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/minqi/alphahunter/internal/clients/eastmoney"
	"github.com/minqi/alphahunter/internal/config"
	"github.com/minqi/alphahunter/internal/database"
	"github.com/minqi/alphahunter/internal/modules/datasync"
	"github.com/minqi/alphahunter/internal/modules/market"
	"github.com/minqi/alphahunter/internal/modules/portfolio"
	"github.com/minqi/alphahunter/internal/modules/report"
	"github.com/minqi/alphahunter/internal/modules/scan"
	"github.com/minqi/alphahunter/internal/modules/universe"
	"github.com/minqi/alphahunter/internal/reliability"
	"github.com/minqi/alphahunter/internal/scheduler"
	"github.com/minqi/alphahunter/internal/server"
	"github.com/minqi/alphahunter/pkg/logger"
)

func main() {
	// Load configuration first to get the log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting AlphaHunter")

	// Databases: market.db holds the securities table and the daily bar
	// archive, portfolio.db the position ledger.
	marketDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "market.db"),
		Profile: database.ProfileStandard,
		Name:    "market",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open market database")
	}
	defer marketDB.Close()

	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	for _, db := range []*database.DB{marketDB, portfolioDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to apply schema")
		}
	}

	// Upstream market data client. One worker paces every request, so all
	// services share this instance.
	client := eastmoney.NewClient(log)
	defer client.Close()

	// Repositories
	securities := universe.NewSecurityRepository(marketDB.Conn(), log)
	bars := universe.NewBarRepository(marketDB.Conn(), log)
	positions := portfolio.NewPositionRepository(portfolioDB.Conn(), log)

	// Market data services
	snapshots := market.NewSnapshotService(client, securities, cfg.Scan.ChunkSize, log)
	histories := market.NewHistoryService(client, bars, cfg.Scan.LookbackDays, log)
	snapshotCache := market.NewSnapshotCache(filepath.Join(cfg.DataDir, "snapshot.cache"), log)

	// Strategy scan
	registry := scan.NewPopulatedRegistry(
		scan.BoxBreakoutConfig{
			Window:       cfg.Scan.BoxWindow,
			PriceMult:    cfg.Scan.BoxPriceMultiplier,
			VolumeMult:   cfg.Scan.BoxVolumeMult,
			AmplitudeMax: cfg.Scan.BoxAmplitudeMax,
			AmplitudeMin: cfg.Scan.BoxAmplitudeMin,
		},
		scan.CrossoverConfig{
			ShortWindow: cfg.Scan.MAShortWindow,
			LongWindow:  cfg.Scan.MALongWindow,
		},
		log,
	)
	scanner := scan.NewService(registry, log)

	// Reporting
	enricher := report.NewEnricher(client, log)
	analyzer := report.NewAnalyzer(cfg.AI, log)
	reports := report.NewService(enricher, analyzer, log)
	results := report.NewResultsStore(cfg.Scan.ResultsPath, log)

	// Exit-rule pass over the position ledger
	exitRules := portfolio.NewExitRules(cfg.Exit.StopLossThreshold, cfg.Exit.TakeProfitThreshold)
	ledger := portfolio.NewService(positions, client, exitRules, log)

	// Daily bar sync
	syncService := datasync.NewService(client, securities, bars, cfg.Sync.BackfillDays, cfg.Sync.Politeness, log)

	// Backups degrade to a log line unless a bucket is configured
	var objectStorage reliability.ObjectStorage
	if cfg.Backup.Bucket != "" {
		store, err := reliability.NewObjectStore(context.Background(), reliability.ObjectStoreConfig{
			Endpoint:        cfg.Backup.Endpoint,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
			Bucket:          cfg.Backup.Bucket,
		}, log)
		if err != nil {
			log.Error().Err(err).Msg("Object storage unavailable, backups disabled")
		} else {
			objectStorage = store
		}
	}
	backupService := reliability.NewBackupService(reliability.BackupServiceConfig{
		Log:           log,
		Store:         objectStorage,
		Databases:     []*database.DB{marketDB, portfolioDB},
		ResultsPath:   cfg.Scan.ResultsPath,
		StagingDir:    filepath.Join(cfg.DataDir, "backup-staging"),
		KeyPrefix:     cfg.Backup.Prefix,
		RetentionDays: cfg.Backup.RetentionDays,
	})

	// HTTP server and dashboard hub
	hub := server.NewHub(log)
	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		Results:   results,
		Snapshots: snapshotCache,
		Positions: positions,
		Hub:       hub,
	})

	// Jobs
	sched := scheduler.New(log)

	scanJob := scheduler.NewScanCycleJob(scheduler.ScanCycleConfig{
		Log:       log,
		Snapshots: snapshots,
		Cache:     snapshotCache,
		Histories: histories,
		Scanner:   scanner,
		Reports:   reports,
		Portfolio: ledger,
		Results:   results,
		Publisher: hub,
		TopMovers: cfg.Scan.TopMovers,
		Targets:   cfg.Scan.Targets,
	})
	if err := sched.AddJob(fmt.Sprintf("@every %s", cfg.Scan.Interval), scanJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule scan cycle")
	}

	syncJob := scheduler.NewDailySyncJob(syncService, log)
	if err := sched.AddJob(cfg.Sync.Cron, syncJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule daily sync")
	}

	backupJob := reliability.NewBackupJob(backupService, log)
	if err := sched.AddJob(cfg.Backup.Cron, backupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule backup")
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started")

	// The first scan runs immediately; the schedule starts only after it
	// completes, so cycles never overlap. A fresh data directory has no
	// securities to snapshot, so it bootstraps the archive first.
	go func() {
		count, err := securities.Count()
		if err != nil {
			log.Error().Err(err).Msg("Failed to inspect security universe")
		}
		if count == 0 {
			log.Info().Msg("Empty security universe, bootstrapping the archive")
			if err := sched.RunNow(syncJob); err != nil {
				log.Error().Err(err).Msg("Archive bootstrap failed")
			}
		}

		if err := sched.RunNow(scanJob); err != nil {
			log.Error().Err(err).Msg("Initial scan failed")
		}
		sched.Start()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("AlphaHunter stopped")
}
