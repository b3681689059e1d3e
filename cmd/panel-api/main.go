package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/vpanel/internal/api"
	"github.com/edvin/vpanel/internal/config"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/db"
	"github.com/edvin/vpanel/internal/logging"
	"github.com/edvin/vpanel/internal/metrics"
	"github.com/edvin/vpanel/internal/provision"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "seed-admin" {
		seedAdmin(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	metrics.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool)

	var runner provision.Runner
	if cfg.Provision.DryRun {
		logger.Warn().Msg("provisioning dry run enabled, host commands will not be executed")
		runner = provision.NewDryRunner(logger)
	} else {
		runner = provision.NewSudoRunner(logger, provision.Options{
			UseSudo:  cfg.Provision.UseSudo,
			SudoPath: cfg.Provision.SudoPath,
			BinDir:   cfg.Provision.BinDir,
		})
	}

	srv := api.NewServer(logger, pool, runner, cfg)

	servers := []*http.Server{srv.HTTPServer(cfg.HTTPListenAddr)}
	if cfg.MetricsListenAddr != "" {
		servers = append(servers, metrics.NewServer(cfg.MetricsListenAddr, srv.Health()))
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, hs := range servers {
		group.Go(func() error {
			logger.Info().Str("addr", hs.Addr).Msg("starting HTTP listener")
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen on %s: %w", hs.Addr, err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, hs := range servers {
			errs = append(errs, hs.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	if err := group.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func seedAdmin(args []string) {
	fs := flag.NewFlagSet("seed-admin", flag.ExitOnError)
	login := fs.String("login", core.DefaultAdminLogin, "Login for the admin account")
	password := fs.String("password", "", "Password for the admin account (required)")
	fs.Parse(args)

	if utf8.RuneCountInString(*password) < core.MinWebPasswordLen {
		fmt.Fprintf(os.Stderr, "error: --password is required and must be at least %d characters\n", core.MinWebPasswordLen)
		fmt.Fprintln(os.Stderr, "usage: panel-api seed-admin [--login <email>] --password <password>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	created, err := core.NewAccountService(pool).SeedAdmin(ctx, *login, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to seed admin: %v\n", err)
		os.Exit(1)
	}
	if !created {
		fmt.Printf("Account %s already exists, nothing to do.\n", *login)
		return
	}
	fmt.Printf("Admin account %s created.\n", *login)
}
