package service

import (
	"github.com/vircom/folio/internal/cache"
	"github.com/vircom/folio/internal/config"
	"github.com/vircom/folio/internal/database"
	"github.com/vircom/folio/internal/domain/document"
	"github.com/vircom/folio/internal/domain/sequence"
	"github.com/vircom/folio/internal/logger"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     database.IClient
	Cache  cache.Cache

	// Repositories
	SequenceRepo sequence.Repository
	DocumentRepo document.Repository
	LineItemRepo document.LineItemRepository
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db database.IClient,
	cache cache.Cache,
	sequenceRepo sequence.Repository,
	documentRepo document.Repository,
	lineItemRepo document.LineItemRepository,
) ServiceParams {
	return ServiceParams{
		Logger:       logger,
		Config:       config,
		DB:           db,
		Cache:        cache,
		SequenceRepo: sequenceRepo,
		DocumentRepo: documentRepo,
		LineItemRepo: lineItemRepo,
	}
}
