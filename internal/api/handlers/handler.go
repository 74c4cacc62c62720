package handlers

import (
	"github.com/opshare/opshare/internal/catalog"
	"github.com/opshare/opshare/internal/identity"
	"github.com/opshare/opshare/internal/mail"
	"github.com/opshare/opshare/internal/repositories"
	"github.com/opshare/opshare/internal/roles"
	"github.com/opshare/opshare/internal/token"
	"github.com/opshare/opshare/internal/verification"
	"go.uber.org/zap"
)

// Handler carries every collaborator the HTTP surface needs. It is
// assembled once in main and shared across requests.
type Handler struct {
	Identity *identity.Store
	Ledger   *verification.Ledger
	Roles    *roles.Registry
	Tokens   *token.Service
	Catalog  *catalog.Catalog
	Mailer   mail.Sender
	Blobs    repositories.BlobStore
	Log      *zap.Logger

	JWTSecret   string
	Environment string
	// BaseURL, when set, overrides the request host in generated links.
	BaseURL string
}
