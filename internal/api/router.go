package api

import (
	"fmt"
	"net/http"

	_ "github.com/opshare/opshare/docs"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/opshare/opshare/internal/api/handlers"
	"github.com/opshare/opshare/internal/api/middleware"
	"github.com/opshare/opshare/internal/config"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func SetupRouter(h *handlers.Handler, log *zap.Logger) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(config.Envs.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	authMux := http.NewServeMux()
	authMux.HandleFunc("/register", h.Register)
	authMux.HandleFunc("/login", h.Login)
	authMux.HandleFunc("/logout", h.Logout)
	authMux.HandleFunc("/verify-email", h.VerifyEmail)

	mainMux.Handle("/api/v1/auth/",
		http.StripPrefix("/api/v1/auth", authMux),
	)

	// ---------- PROTECTED ROUTES ----------
	fileMux := http.NewServeMux()
	fileMux.HandleFunc("/upload", h.Upload)
	fileMux.HandleFunc("/{$}", h.List)
	fileMux.HandleFunc("/{id}/link", h.GenerateLink)
	fileMux.HandleFunc("/download/{token}", h.SecureDownload)

	mainMux.Handle("/api/v1/files/",
		http.StripPrefix(
			"/api/v1/files",
			middleware.Auth(h.JWTSecret)(fileMux),
		),
	)

	handler := c.Handler(mainMux)
	handler = middleware.Logger(log)(handler)
	return handler
}
