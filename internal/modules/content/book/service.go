package book

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/pkg/pagination"
	"github.com/ctenarsky-denik/journal/internal/pkg/response"
	"go.uber.org/zap"
)

// Service manages a user's library.
type Service struct {
	repo   Repository
	ledger *quota.Ledger
	log    *zap.Logger
}

func NewService(repo Repository, ledger *quota.Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, ledger: ledger, log: logger.Named("book")}
}

// Create adds a book after checking the tier's library size.
func (s *Service) Create(ctx context.Context, userID, email string, b *models.BookModel) (*models.BookModel, error) {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	if b.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}

	account, err := s.ledger.Account(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	count, err := s.repo.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.CheckBookLimit(account, count); err != nil {
		return nil, err
	}

	b.ID = ""
	b.UserID = userID
	if b.Summary != "" && b.SummarySource == "" {
		b.SummarySource = models.SummaryManual
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	s.log.Info("book created", zap.String("user_id", userID), zap.String("book_id", b.ID))
	return b, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*models.BookModel, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string, q pagination.Query) ([]models.BookModel, response.Pagination, error) {
	return s.repo.List(ctx, userID, pagination.Normalize(q))
}

// Update applies a partial change set.
func (s *Service) Update(ctx context.Context, userID, id string, c Changes) (*models.BookModel, error) {
	if c.Title != nil {
		title := strings.TrimSpace(*c.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalid)
		}
		c.Title = &title
	}
	if c.SummarySource != nil {
		switch *c.SummarySource {
		case models.SummaryManual, models.SummaryAI:
		default:
			return nil, fmt.Errorf("%w: unknown summary source %q", ErrInvalid, *c.SummarySource)
		}
	}
	if c.IsEmpty() {
		return s.repo.Get(ctx, userID, id)
	}
	return s.repo.Update(ctx, userID, id, c)
}

func (s *Service) SetNotes(ctx context.Context, userID, id, notes string) (*models.BookModel, error) {
	return s.repo.Update(ctx, userID, id, Changes{Notes: &notes})
}

// SetSummary stores a summary and its origin. An empty source means manual.
func (s *Service) SetSummary(ctx context.Context, userID, id, text, source string) (*models.BookModel, error) {
	if source == "" {
		source = models.SummaryManual
	}
	return s.Update(ctx, userID, id, Changes{Summary: &text, SummarySource: &source})
}

func (s *Service) SetAuthorSummary(ctx context.Context, userID, id, text string) (*models.BookModel, error) {
	return s.repo.Update(ctx, userID, id, Changes{AuthorSummary: &text})
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}
