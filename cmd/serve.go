package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kilnbazaar/api"
	"kilnbazaar/config"
	"kilnbazaar/pkg/bot"
	"kilnbazaar/pkg/jobs"
	"kilnbazaar/pkg/logger"
	"kilnbazaar/service"
	"kilnbazaar/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the Telegram bot and housekeeping jobs",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", logger.Error(err))
		return err
	}
	defer store.Close()

	opts := service.Options{
		Auth: service.AuthConfig{
			Secret:      cfg.JWTSecret,
			TokenTTL:    cfg.JWTTTL,
			OTPTTL:      cfg.OTPTTL,
			OTPLength:   cfg.OTPLength,
			MaxAttempts: cfg.OTPMaxAttempts,
		},
	}
	fallback := service.LogOTPSender{Log: log}

	// The bot needs the services and the services notify through the bot, so
	// the bot is wired through a late-bound notifier.
	notifier := &lateNotifier{}
	opts.Notifier = notifier
	opts.OTPSender = fallback
	if cfg.TelegramBotToken != "" && !cfg.OTPDebug {
		opts.OTPSender = bot.OTPSender{Notifier: notifier, Users: store.User(), Fallback: fallback, Log: log}
	}

	var tg *bot.Bot
	svc := service.New(store, log, opts)
	if cfg.TelegramBotToken != "" {
		tg, err = bot.New(cfg.TelegramBotToken, false, svc, store, log)
		if err != nil {
			log.Error("failed to initialize telegram bot", logger.Error(err))
			return err
		}
		notifier.set(tg)
	} else {
		log.Warning("TG_BOT_TOKEN is empty, telegram bot disabled")
	}

	scheduler := jobs.New(store.OTP(), log)
	if err := scheduler.Register(cfg.CleanupSchedule); err != nil {
		return err
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: api.New(api.Options{
			Services:       svc,
			Log:            log,
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("🚀 http server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if tg != nil {
		g.Go(func() error {
			tg.Start()
			return nil
		})
	}
	scheduler.Start()

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if tg != nil {
			tg.Stop()
		}
		scheduler.Stop(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
