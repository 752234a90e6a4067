package repository

import (
	"github.com/vircom/folio/internal/config"
	"github.com/vircom/folio/internal/database"
	"github.com/vircom/folio/internal/domain/document"
	"github.com/vircom/folio/internal/domain/sequence"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/repository/rdbms"
)

func NewSequenceRepository(db *database.DB, logger *logger.Logger, cfg *config.Configuration) sequence.Repository {
	return rdbms.NewSequenceRepository(db, logger, cfg.Sequence.LockTimeout)
}

func NewDocumentRepository(db *database.DB, logger *logger.Logger) document.Repository {
	return rdbms.NewDocumentRepository(db, logger)
}

func NewLineItemRepository(db *database.DB, logger *logger.Logger) document.LineItemRepository {
	return rdbms.NewLineItemRepository(db, logger)
}
