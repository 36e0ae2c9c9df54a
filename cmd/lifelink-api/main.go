// README: Entry point; loads config, wires services, seeds the demo directory and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"lifelink/internal/alert"
	"lifelink/internal/config"
	httptransport "lifelink/internal/http"
	"lifelink/internal/infra"
	"lifelink/internal/maps"
	"lifelink/internal/metrics"
	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/insight"
	"lifelink/internal/modules/matching"
	"lifelink/internal/modules/medical"
	"lifelink/internal/modules/notification"
	"lifelink/internal/modules/request"
	"lifelink/internal/seed"
	"lifelink/internal/service"
	"lifelink/internal/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := infra.NewLogger(cfg.Log.Level, cfg.Log.Format, "lifelink-api")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("lifelink-api stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	m := metrics.New()
	v := validate.New()

	var (
		donorStore   donor.Store
		requestStore request.Store
		inboxStore   notification.Store
		vaultStore   medical.Store
		quota        insight.Quota
	)
	if cfg.DB.DSN != "" {
		db, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.DB.Migrate {
			if err := migrate(ctx, db); err != nil {
				return err
			}
		}
		donorStore = donor.NewPGStore(db)
		requestStore = request.NewPGStore(db)
		inboxStore = notification.NewPGStore(db)
		vaultStore = medical.NewPGStore(db)
		quota = insight.NewPGQuota(db, cfg.AI.MonthlyQuota)
		logger.Info("using postgres stores")
	} else {
		donorStore = donor.NewMemoryStore()
		requestStore = request.NewMemoryStore()
		inboxStore = notification.NewMemoryStore()
		vaultStore = medical.NewMemoryStore()
		quota = insight.NewMemoryQuota(cfg.AI.MonthlyQuota)
		logger.Warn("no db.dsn configured, using in-memory stores")
	}

	var fbApp *firebase.App
	if cfg.Firebase.ProjectID != "" {
		app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, cfg.Firebase.DatabaseURL)
		if err != nil {
			return err
		}
		fbApp = app
	}

	var verifier infra.TokenVerifier
	if cfg.Auth.Mode == "firebase" {
		fv, err := infra.NewFirebaseVerifier(ctx, fbApp)
		if err != nil {
			return err
		}
		verifier = fv
	} else {
		logger.Warn("dev auth enabled, bearer tokens are \"role:uid\"")
		verifier = infra.NewDevVerifier()
	}

	donors := donor.NewService(donorStore, v)
	requests := request.NewService(requestStore, v)
	inbox := notification.NewService(inboxStore, requests, donors, m, logger.Named("notification"))
	vault := medical.NewService(vaultStore)

	matchOpts := []matching.Option{
		matching.WithRadius(cfg.Matching.RadiusKm),
		matching.WithMetrics(m),
		matching.WithLogger(logger.Named("matching")),
	}
	if cfg.Redis.Addr != "" {
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		matchOpts = append(matchOpts, matching.WithDispatchStore(matching.NewStore(rdb)))
	}
	gateway, err := buildGateway(ctx, cfg, fbApp, logger)
	if err != nil {
		return err
	}
	broadcaster := matching.NewService(donors, inbox, gateway, matchOpts...)

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}
	analyst := insight.NewService(provider, quota,
		insight.WithTimeout(cfg.AI.Timeout()),
		insight.WithMetrics(m),
		insight.WithLogger(logger.Named("insight")))

	deps := service.Deps{
		Requests:        requests,
		Donors:          donors,
		Broadcaster:     broadcaster,
		Vault:           vault,
		Analyst:         analyst,
		RadiusKm:        cfg.Matching.RadiusKm,
		SmartMatchCount: cfg.Matching.SmartMatchCount,
		Metrics:         m,
		Log:             logger.Named("desk"),
	}
	if cfg.Maps.APIKey != "" {
		client, err := maps.NewClient(cfg.Maps.APIKey, "")
		if err != nil {
			return err
		}
		deps.Geocoder = maps.NewGeocodeService(client)
		deps.Router = maps.NewRouteService(client)
	}
	desk := service.NewDesk(deps)

	if cfg.Seed {
		if err := seed.Load(ctx, donors, vault, logger.Named("seed")); err != nil {
			return err
		}
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Desk:          desk,
		Donors:        donors,
		Requests:      requests,
		Notifications: inbox,
		Vault:         vault,
		Verifier:      verifier,
		Metrics:       m,
		Log:           logger.Named("http"),
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

func migrate(ctx context.Context, db *pgxpool.Pool) error {
	root, err := infra.RepoRoot()
	if err != nil {
		return err
	}
	return infra.ApplyMigration(ctx, db, filepath.Join(root, "migrations", "0001_init.sql"))
}

// buildGateway always logs alerts and adds FCM and SMTP when configured.
func buildGateway(ctx context.Context, cfg config.Config, app *firebase.App, logger *zap.Logger) (alert.Gateway, error) {
	gateways := []alert.Gateway{alert.NewLogGateway(logger.Named("alert"))}
	if app != nil && cfg.Firebase.DatabaseURL != "" {
		fcm, err := alert.NewFCMGatewayFromApp(ctx, app, logger.Named("fcm"))
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, fcm)
	}
	if cfg.SMTP.Host != "" {
		gateways = append(gateways, alert.NewSMTPGateway(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From))
	}
	if len(gateways) == 1 {
		return gateways[0], nil
	}
	return alert.NewFanOut(gateways...), nil
}

// buildProvider returns nil for "none"; the insight service then always
// answers with its fallbacks.
func buildProvider(ctx context.Context, cfg config.Config) (insight.Provider, error) {
	switch cfg.AI.Provider {
	case "gemini":
		return insight.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
	case "openai":
		return insight.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL), nil
	}
	return nil, nil
}
