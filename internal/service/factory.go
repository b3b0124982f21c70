package service

import (
	"github.com/petshopone/fiscal-service/internal/certificate"
	"github.com/petshopone/fiscal-service/internal/config"
	"github.com/petshopone/fiscal-service/internal/domain/credential"
	"github.com/petshopone/fiscal-service/internal/domain/nfeimport"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/petshopone/fiscal-service/internal/postgres"
	"github.com/petshopone/fiscal-service/internal/security"
	"github.com/petshopone/fiscal-service/internal/sefaz"
)

// QuerierFactory builds a distribution querier for one tenant
// credential. Tests inject a factory returning a scripted fake.
type QuerierFactory func(cred *certificate.Credential, cnpj, uf string) (sefaz.Querier, error)

// NewDefaultQuerierFactory returns the production factory backed by
// the mTLS distribution client
func NewDefaultQuerierFactory(cfg *config.Configuration, log *logger.Logger) QuerierFactory {
	return func(cred *certificate.Credential, cnpj, uf string) (sefaz.Querier, error) {
		return sefaz.NewClient(cfg, cred, cnpj, uf, log)
	}
}

// NewServiceParams assembles the dependency bag for the service layer
func NewServiceParams(
	logger *logger.Logger,
	cfg *config.Configuration,
	vault security.Vault,
	db *postgres.DB,
	credentialRepo credential.Repository,
	nfeImportRepo nfeimport.Repository,
	querierFactory QuerierFactory,
) ServiceParams {
	return ServiceParams{
		Logger:         logger,
		Config:         cfg,
		Vault:          vault,
		DB:             db,
		CredentialRepo: credentialRepo,
		NFeImportRepo:  nfeImportRepo,
		QuerierFactory: querierFactory,
	}
}

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Vault  security.Vault

	// DB is nil in unit tests; when present it provides transactions
	// and the per-tenant sync advisory lock
	DB *postgres.DB

	CredentialRepo credential.Repository
	NFeImportRepo  nfeimport.Repository

	QuerierFactory QuerierFactory
}
