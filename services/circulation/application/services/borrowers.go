package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghuser/circulation/pkg/logger"
	"github.com/ghuser/circulation/services/circulation/domain"
	"github.com/ghuser/circulation/services/circulation/domain/models"
	"github.com/ghuser/circulation/services/circulation/domain/repositories"
)

// BorrowerService registers and reads borrowers.
type BorrowerService struct {
	repo repositories.BorrowerRepository
	log  logger.Logger
}

// NewBorrowerService returns a BorrowerService.
func NewBorrowerService(repo repositories.BorrowerRepository, log logger.Logger) *BorrowerService {
	return &BorrowerService{repo: repo, log: log.With("component", "borrowers")}
}

// Register creates a borrower. Returns domain.ErrContactInUse when contact
// is already registered, including when a concurrent registration wins.
func (s *BorrowerService) Register(ctx context.Context, name, contact string) (*models.Borrower, error) {
	s.log.InfoContext(ctx, "registering borrower")

	borrower, err := models.NewBorrower(name, contact)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByContact(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("check contact: %w", err)
	}
	if exists {
		s.log.WarnContext(ctx, "contact already registered")
		return nil, domain.ErrContactInUse
	}

	if err := s.repo.Save(ctx, borrower); err != nil {
		if errors.Is(err, domain.ErrContactInUse) {
			s.log.WarnContext(ctx, "contact registered concurrently")
			return nil, err
		}
		return nil, fmt.Errorf("save borrower: %w", err)
	}

	s.log.InfoContext(ctx, "borrower registered", "borrower_id", borrower.ID)
	return borrower, nil
}

// GetByID returns the borrower or domain.ErrBorrowerNotFound.
func (s *BorrowerService) GetByID(ctx context.Context, id uuid.UUID) (*models.Borrower, error) {
	borrower, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get borrower: %w", err)
	}
	return borrower, nil
}
