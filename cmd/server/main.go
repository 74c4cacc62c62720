package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/opshare/opshare/internal/api"
	"github.com/opshare/opshare/internal/api/handlers"
	"github.com/opshare/opshare/internal/catalog"
	"github.com/opshare/opshare/internal/config"
	"github.com/opshare/opshare/internal/identity"
	"github.com/opshare/opshare/internal/mail"
	"github.com/opshare/opshare/internal/observability"
	"github.com/opshare/opshare/internal/repositories"
	"github.com/opshare/opshare/internal/roles"
	"github.com/opshare/opshare/internal/token"
	"github.com/opshare/opshare/internal/utils"
	"github.com/opshare/opshare/internal/verification"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Envs

	logger, err := observability.InitLogger(cfg.Environment != "production")
	if err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := repositories.Connect(cfg.DB_URL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	logger.Info("connected to database")

	blobs, err := newBlobStore(cfg)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}

	tokens, err := newTokenService(cfg, logger)
	if err != nil {
		logger.Fatal("token service init failed", zap.Error(err))
	}

	h := &handlers.Handler{
		Identity: identity.NewStore(db),
		Ledger:   verification.NewLedger(db),
		Roles:    roles.NewRegistry(db),
		Tokens:   tokens,
		Catalog:  catalog.NewCatalog(db),
		Mailer: mail.NewSMTPSender(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From,
			cfg.SMTP.Username, cfg.SMTP.Password,
		),
		Blobs:       blobs,
		Log:         logger,
		JWTSecret:   cfg.JWTSecret,
		Environment: cfg.Environment,
		BaseURL:     cfg.BaseURL,
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: api.SetupRouter(h, logger),
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newBlobStore(cfg config.Config) (repositories.BlobStore, error) {
	if cfg.Storage.Backend == "s3" {
		return repositories.NewS3Store(
			cfg.Storage.AccessKeyID,
			cfg.Storage.SecretAccessKey,
			cfg.Storage.AccountID,
			cfg.Storage.BucketName,
			cfg.Storage.Region,
		), nil
	}
	return repositories.NewLocalStore(cfg.Storage.LocalDir)
}

// newTokenService loads the download-token key, or generates an ephemeral
// one in development so local setups work without configuration. Links
// minted under an ephemeral key die with the process.
func newTokenService(cfg config.Config, logger *zap.Logger) (*token.Service, error) {
	raw := cfg.TokenKey
	if raw == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("DOWNLOAD_TOKEN_KEY is required in production")
		}
		generated, err := utils.GenerateSecureToken(32)
		if err != nil {
			return nil, err
		}
		logger.Warn("DOWNLOAD_TOKEN_KEY not set, using an ephemeral key")
		raw = generated
	}
	key, err := token.ParseKey(raw)
	if err != nil {
		return nil, err
	}
	return token.NewService(key)
}
