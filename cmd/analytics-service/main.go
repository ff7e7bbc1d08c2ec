package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/synaptica-ai/noshow/pkg/analytics/cohort"
	"github.com/synaptica-ai/noshow/pkg/analytics/insights"
	"github.com/synaptica-ai/noshow/pkg/common/config"
	"github.com/synaptica-ai/noshow/pkg/common/database"
	"github.com/synaptica-ai/noshow/pkg/common/kafka"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/gateway/auth"
	"github.com/synaptica-ai/noshow/pkg/gateway/httpclient"
	"github.com/synaptica-ai/noshow/pkg/gateway/middleware"
	"github.com/synaptica-ai/noshow/pkg/gateway/routes"
	"github.com/synaptica-ai/noshow/pkg/normalizer"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
	"github.com/synaptica-ai/noshow/pkg/storage"
)

func main() {
	logger.Init()
	cfg := config.Load()

	insightCfg, err := insights.LoadConfig(cfg.InsightsConfigPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load insights config")
	}
	engine := pipeline.NewEngine(insights.NewGenerator(insightCfg), pipeline.WithMemoSize(cfg.EngineMemoSize))

	loadOpts := []normalizer.Option{
		normalizer.WithHTTPClient(httpclient.New(cfg.FetchTimeout), cfg.FetchAttempts),
		normalizer.WithMaxBytes(cfg.MaxRequestBody),
	}
	var viewOpts []cohort.Option

	if cfg.PostgresEnabled {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
		}
		defer database.ClosePostgres()

		repo := normalizer.NewRepository(db)
		snapshots := storage.NewSnapshotWriter(db)
		views := cohort.NewViewRepository(db)
		for name, migrate := range map[string]func() error{
			"dataset_loads":  repo.AutoMigrate,
			"view_snapshots": snapshots.AutoMigrate,
			"saved_views":    views.AutoMigrate,
		} {
			if err := migrate(); err != nil {
				logger.Log.WithError(err).WithField("table", name).Fatal("Failed to migrate")
			}
		}
		loadOpts = append(loadOpts, normalizer.WithRepository(repo))
		viewOpts = append(viewOpts, cohort.WithSnapshotWriter(snapshots), cohort.WithViewRepository(views))
	}

	if cfg.RedisEnabled {
		client := database.GetRedis(cfg)
		defer database.CloseRedis()
		viewOpts = append(viewOpts, cohort.WithViewCache(storage.NewViewCache(client, cfg.ViewCacheTTL)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var consumer *kafka.Consumer
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.DatasetEventsTopic)
		defer producer.Close()
		loadOpts = append(loadOpts, normalizer.WithPublisher(producer))
		consumer = kafka.NewConsumer(cfg.KafkaBrokers, cfg.DatasetSubmitTopic, cfg.KafkaGroupID)
		defer consumer.Close()
	}

	loader := normalizer.NewService(nil, engine, loadOpts...)
	views := cohort.NewService(engine, viewOpts...)

	if consumer != nil {
		go func() {
			if err := consumer.Consume(ctx, loader.HandleSubmission); err != nil {
				logger.Log.WithError(err).Error("Dataset submission consumer stopped")
			}
		}()
	}

	// Only configured mechanisms join the chain; a typed nil would not.
	var chain auth.Chain
	if jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL); err == nil {
		chain = append(chain, jwtManager)
	} else if cfg.JWTSecret != "" {
		logger.Log.WithError(err).Warn("JWT authentication disabled")
	}
	oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret)
	if err != nil {
		logger.Log.WithError(err).Warn("OIDC authentication not configured")
	} else {
		chain = append(chain, oidcAuth)
	}
	var authn auth.Authenticator
	if len(chain) > 0 {
		authn = chain
	} else {
		logger.Log.Warn("No authentication configured, running without auth")
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.GatewayRateLimitRPS, cfg.GatewayRateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	routes.NewMetricsHandler(engine).Register(router)
	routes.NewAuthHandler(oidcAuth, authn).Register(router.PathPrefix("/auth").Subrouter())

	api := router.PathPrefix("/api/v1").Subrouter()
	if authn != nil {
		api.Use(middleware.Authenticate(authn))
	}
	write := api.NewRoute().Subrouter()
	write.Use(middleware.RequireRole("admin", "analyst"))

	routes.NewDatasetHandler(loader, engine, cfg.MaxRequestBody).Register(api, write)
	routes.NewDashboardHandler(views, engine).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      handlers.CompressHandler(router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":     cfg.ServerHost,
			"port":     cfg.ServerPort,
			"postgres": cfg.PostgresEnabled,
			"redis":    cfg.RedisEnabled,
			"kafka":    cfg.KafkaEnabled,
		}).Info("Analytics Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down Analytics Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Analytics Service stopped")
}
