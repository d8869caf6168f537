package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/api"
	"github.com/moative/overlap-escalation/pkg/cli"
	"github.com/moative/overlap-escalation/pkg/config"
	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/overlap"
	"github.com/moative/overlap-escalation/pkg/store"
	"github.com/moative/overlap-escalation/pkg/system"
	"github.com/moative/overlap-escalation/pkg/version"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cliConfig := cli.Parse()

	zl := system.SetupLogger(cliConfig.Debug)
	defer func() { _ = zl.Sync() }()
	log := zl.Sugar()
	log.With("version", version.GetBuildInfo().String()).Info("Starting overlap escalation service")
	cliConfig.Print(log)

	cfg, err := config.Load(cliConfig.ConfigPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	cliConfig.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration after flag overrides: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, zl, cfg, cliConfig); err != nil {
		log.Fatalf("overlapd stopped with error: %v", err)
	}
	log.Info("overlapd stopped")
}

func run(ctx context.Context, zl *zap.Logger, cfg config.Config, cliConfig *cli.Config) error {
	log := zl.Sugar()

	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warnw("Failed to close store", "error", err)
		}
	}()
	if cfg.Store.SeedFile != "" {
		if _, err := st.SeedFromFile(ctx, cfg.Store.SeedFile); err != nil {
			return err
		}
	}

	composer, fallback, err := buildComposers(cfg, log)
	if err != nil {
		return err
	}
	notifier := buildNotifier(cfg, cliConfig.DisableSlack, log)

	auditService, err := buildAudit(cfg, zl)
	if err != nil {
		return err
	}
	auditService.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := auditService.Stop(stopCtx); err != nil {
			log.Warnw("Audit service did not drain", "error", err)
		}
	}()

	escCtx, cancelEscalations := context.WithCancel(context.Background())
	controller := escalation.NewController(escCtx, log, escalation.NewTracker(), overlap.NewEngine(),
		escalation.Dependencies{
			Records:  st,
			Weights:  st,
			Team:     st,
			Composer: composer,
			Fallback: fallback,
			Notifier: notifier,
			Recorder: auditService,
		},
		escalation.Config{MessageDelay: cli.ParseMessageDelay(cfg.Escalation.MessageDelay, 2*time.Second, log)})
	defer func() {
		cancelEscalations()
		controller.Wait()
	}()

	server := api.NewServer(zl, cfg, cliConfig.Debug, st)
	defer server.Close()
	err = server.RegisterAll([]api.APIController{
		api.NewEscalationController(log, controller),
		api.NewRecordsController(log, st, controller, auditService),
		api.NewTeamController(log, st, controller, auditService),
		api.NewWeightsController(log, st, controller, auditService),
	})
	if err != nil {
		return err
	}

	if cfg.Escalation.TriggerOnStartup != nil && *cfg.Escalation.TriggerOnStartup {
		res := controller.Trigger(ctx, escalation.SourceStartup, "")
		log.Infow("Startup escalation trigger", "outcome", res.Outcome, "recordId", res.RecordID)
	}

	listenErr := make(chan error, 1)
	go func() { listenErr <- server.Listen() }()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("HTTP server did not shut down cleanly", "error", err)
	}
	return <-listenErr
}
