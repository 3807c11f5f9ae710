package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"trialflow/config"
	"trialflow/db"
	"trialflow/notify"
	"trialflow/schedule"
	"trialflow/trial"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap database pool")
	}
	defer pool.Close()

	mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:         cfg.SMTPHost,
		Port:         cfg.SMTPPort,
		Username:     cfg.SMTPUsername,
		Password:     cfg.SMTPPassword,
		From:         cfg.SMTPFrom,
		MaxPerSecond: cfg.SMTPMaxPerSecond,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap mailer")
	}

	windows := schedule.Windows{
		AccessWindowMinutes: cfg.AccessWindowMinutes,
		NotifyWindowMinutes: cfg.NotifyWindowMinutes,
		GraceWindowMinutes:  cfg.GraceWindowMinutes,
	}

	tokenTTL := time.Duration(cfg.AccessWindowMinutes+cfg.GraceWindowMinutes) * time.Minute
	issuer := notify.NewTokenIssuer(cfg.JoinTokenSecret, tokenTTL)

	store := trial.NewPGStore(pool)
	fanout := notify.NewFanout(notify.NewPGWriter(pool), mailer, log).
		WithJoinTokens(issuer, cfg.JoinURL)

	transition := schedule.NewTransitionEngine(store, fanout, schedule.DefaultOffsets(), windows, log)
	reminder := schedule.NewReminderDispatcher(store, fanout, cfg.ReminderOffsets, log)

	runner := schedule.NewRunner(transition, reminder, windows, schedule.RunnerConfig{
		TransitionInterval: cfg.TransitionInterval,
		ReminderAnchorHour: cfg.ReminderAnchorHour,
	}, log)

	if err := runner.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start scheduler")
	}

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	runner.Stop(stopCtx)
}
