package repository

import (
	"github.com/petshopone/fiscal-service/internal/domain/credential"
	"github.com/petshopone/fiscal-service/internal/domain/nfeimport"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/petshopone/fiscal-service/internal/postgres"
	postgresRepo "github.com/petshopone/fiscal-service/internal/repository/postgres"
)

func NewCredentialRepository(db *postgres.DB, logger *logger.Logger) credential.Repository {
	return postgresRepo.NewCredentialRepository(db, logger)
}

func NewNFeImportRepository(db *postgres.DB, logger *logger.Logger) nfeimport.Repository {
	return postgresRepo.NewNFeImportRepository(db, logger)
}
