package testutil

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/petshopone/fiscal-service/internal/config"
	"github.com/petshopone/fiscal-service/internal/domain/credential"
	"github.com/petshopone/fiscal-service/internal/domain/nfeimport"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/petshopone/fiscal-service/internal/security"
	"github.com/petshopone/fiscal-service/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	CredentialRepo credential.Repository
	NFeImportRepo  nfeimport.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	vault  security.Vault
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Secrets.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	s.config = cfg

	s.logger = logger.NewNoOpLogger()

	vault, err := security.NewVault(cfg, s.logger)
	if err != nil {
		s.T().Fatalf("failed to create vault: %v", err)
	}
	s.vault = vault
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		CredentialRepo: NewInMemoryCredentialStore(),
		NFeImportRepo:  NewInMemoryNFeImportStore(),
	}
}

// GetContext returns the test context with tenant and user set
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the in-memory repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetVault returns the test vault
func (s *BaseServiceTestSuite) GetVault() security.Vault {
	return s.vault
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the time captured at test setup
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
