package ai

import (
	"context"
	"errors"

	"github.com/ctenarsky-denik/journal/internal/middleware"
	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/modules/content/book"
	"github.com/ctenarsky-denik/journal/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Library is the part of the book service the generation endpoints use.
type Library interface {
	Get(ctx context.Context, userID, id string) (*models.BookModel, error)
	SetSummary(ctx context.Context, userID, id, text, source string) (*models.BookModel, error)
	SetAuthorSummary(ctx context.Context, userID, id, text string) (*models.BookModel, error)
}

type Handler struct {
	pipeline *Pipeline
	ledger   *quota.Ledger
	library  Library
	log      *zap.Logger
}

func NewHandler(pipeline *Pipeline, ledger *quota.Ledger, library Library, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pipeline: pipeline, ledger: ledger, library: library, log: logger.Named("ai")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/ai", authMW)

	g.GET("/models", h.models)
	g.POST("/summaries/book", h.bookSummary)
	g.POST("/summaries/author", h.authorSummary)
	g.POST("/credits/consume", h.consumeCredit)
}

type generateDTO struct {
	BookID           string      `json:"bookId"`
	Title            string      `json:"title"`
	Author           string      `json:"author"`
	Notes            string      `json:"notes"`
	Preferences      Preferences `json:"preferences"`
	CreditsDeducted  bool        `json:"creditsDeducted"`
	DeductionReceipt string      `json:"deductionReceipt"`
	Save             bool        `json:"save"`
}

// GET /ai/models
func (h *Handler) models(c *gin.Context) {
	response.OK(c, h.pipeline.Models())
}

// POST /ai/summaries/book
func (h *Handler) bookSummary(c *gin.Context) {
	h.generate(c, KindBook)
}

// POST /ai/summaries/author
func (h *Handler) authorSummary(c *gin.Context) {
	h.generate(c, KindAuthor)
}

func (h *Handler) generate(c *gin.Context, kind SubjectKind) {
	var dto generateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)

	req := Request{
		UserID:          userID,
		Email:           middleware.CurrentEmail(c),
		Subject:         Subject{Kind: kind, Title: dto.Title, Author: dto.Author},
		Notes:           dto.Notes,
		Preferences:     dto.Preferences,
		CreditsDeducted: dto.CreditsDeducted,
		Receipt:         dto.DeductionReceipt,
	}

	if dto.BookID != "" {
		b, err := h.library.Get(ctx, userID, dto.BookID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if req.Subject.Title == "" {
			req.Subject.Title = b.Title
		}
		if req.Subject.Author == "" {
			req.Subject.Author = b.Author
		}
		if kind == KindBook && req.Notes == "" {
			req.Notes = b.Notes
		}
	} else if dto.Save {
		response.BadRequest(c, "save requires bookId")
		return
	}

	res, err := h.pipeline.Generate(ctx, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if dto.Save {
		var saveErr error
		if kind == KindAuthor {
			_, saveErr = h.library.SetAuthorSummary(ctx, userID, dto.BookID, res.Text)
		} else {
			_, saveErr = h.library.SetSummary(ctx, userID, dto.BookID, res.Text, models.SummaryAI)
		}
		if saveErr != nil {
			h.log.Warn("saving generated summary failed", zap.String("book_id", dto.BookID), zap.Error(saveErr))
		}
	}

	response.OK(c, res)
}

// POST /ai/credits/consume
func (h *Handler) consumeCredit(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)
	if _, err := h.ledger.Account(ctx, userID, middleware.CurrentEmail(c)); err != nil {
		h.writeError(c, err)
		return
	}
	receipt, balance, err := h.ledger.IssueReceipt(ctx, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{
		"deductionReceipt": receipt,
		"creditsRemaining": balance.Remaining,
		"creditsTotal":     balance.Total,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var validation *ValidationError
	var upstream *UpstreamError
	switch {
	case quota.WriteError(c, err):
	case errors.As(err, &validation):
		response.BadRequest(c, validation.Reason)
	case errors.Is(err, book.ErrNotFound):
		response.NotFoundMsg(c, book.ErrNotFound.Error())
	case errors.As(err, &upstream):
		h.log.Error("generation failed", zap.Int("attempts", upstream.Attempts), zap.Error(upstream.Err))
		response.BadGateway(c, upstream.Error())
	default:
		response.InternalError(c, err)
	}
}
