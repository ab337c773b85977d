// README: serve command; wires stores, services, the fee scheduler and the HTTP server.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kiloadmin/internal/config"
	httptransport "kiloadmin/internal/http"
	"kiloadmin/internal/infra"
	"kiloadmin/internal/maps"
	"kiloadmin/internal/modules/auth"
	"kiloadmin/internal/modules/customer"
	"kiloadmin/internal/modules/driver"
	"kiloadmin/internal/modules/pricing"
	"kiloadmin/migrations"
)

const geocodeRegion = "mm"

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and the time-based fee scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger, migrate bool) error {
	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if migrate {
		if err := migrations.Apply(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied")
	}

	rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	ledger, cache := feeStateBackends(rdb, cfg.Fees, log)

	verifier, issuer, err := verifiers(ctx, cfg, log)
	if err != nil {
		return err
	}

	var geocoder driver.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocoder(cfg.Maps.APIKey, geocodeRegion)
		if err != nil {
			return err
		}
		geocoder = g
	} else {
		log.Info("maps api key not set; driver addresses will not be geocoded")
	}

	pricingSvc := pricing.NewService(pricing.NewStore(db), cache, cfg.Fees.Location(), log.Named("pricing"))
	scheduler := pricing.NewScheduler(pricingSvc, ledger, cfg.Fees.Tick(), log.Named("scheduler"))

	gin.SetMode(gin.ReleaseMode)
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier:  verifier,
		Auth:      auth.NewService(auth.NewStore(db), issuer, log.Named("auth")),
		Drivers:   driver.NewService(driver.NewStore(db), geocoder, log.Named("driver")),
		Customers: customer.NewService(customer.NewStore(db)),
		Fees:      pricingSvc,
		Ready:     readiness(db, rdb),
		Log:       log.Named("http"),
	})
	server := httptransport.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ShutdownTimeout, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error {
		scheduler.Run(gctx)
		return nil
	})
	return g.Wait()
}

// feeStateBackends picks Redis for the trigger ledger and config cache when
// available. The in-memory ledger only dedupes within this process.
func feeStateBackends(rdb *redis.Client, fees config.FeesConfig, log *zap.Logger) (pricing.Ledger, pricing.ConfigCache) {
	if rdb == nil {
		log.Warn("redis not configured; using in-process trigger ledger and no fee cache")
		return pricing.NewMemoryLedger(), nil
	}
	return pricing.NewRedisLedger(rdb, fees.LedgerTTL), pricing.NewRedisCache(rdb, fees.CacheTTL)
}

// verifiers accepts dashboard JWTs and, when a Firebase project is set,
// Firebase ID tokens as well.
func verifiers(ctx context.Context, cfg config.Config, log *zap.Logger) (infra.TokenVerifier, *infra.JWTIssuer, error) {
	issuer := infra.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if cfg.Firebase.ProjectID == "" {
		return issuer, issuer, nil
	}
	fb, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("firebase init: %w", err)
	}
	log.Info("firebase id tokens accepted", zap.String("project_id", cfg.Firebase.ProjectID))
	return infra.ChainVerifier{issuer, fb}, issuer, nil
}

func readiness(db *pgxpool.Pool, rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
