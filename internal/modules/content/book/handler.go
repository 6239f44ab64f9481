package book

import (
	"errors"

	"github.com/ctenarsky-denik/journal/internal/middleware"
	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/pkg/pagination"
	"github.com/ctenarsky-denik/journal/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/books", authMW)

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PUT("/:id/notes", h.setNotes)
	g.PUT("/:id/summary", h.setSummary)
	g.PUT("/:id/author-summary", h.setAuthorSummary)
}

// GET /books
func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(c.Request.Context(), middleware.CurrentUserID(c), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// POST /books
func (h *Handler) create(c *gin.Context) {
	var dto createBookDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentEmail(c), &models.BookModel{
		Title:  dto.Title,
		Author: dto.Author,
		Genre:  dto.Genre,
		Notes:  dto.Notes,
		ReadAt: dto.ReadAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, b)
}

// GET /books/:id
func (h *Handler) get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, b)
}

// PATCH /books/:id
func (h *Handler) update(c *gin.Context) {
	var dto updateBookDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.svc.Update(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), Changes{
		Title:       dto.Title,
		Author:      dto.Author,
		Genre:       dto.Genre,
		ReadAt:      dto.ReadAt,
		ClearReadAt: dto.ClearReadAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, b)
}

// DELETE /books/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// PUT /books/:id/notes
func (h *Handler) setNotes(c *gin.Context) {
	var dto notesDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.svc.SetNotes(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), dto.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, b)
}

// PUT /books/:id/summary
func (h *Handler) setSummary(c *gin.Context) {
	var dto summaryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.svc.SetSummary(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), dto.Summary, dto.Source)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, b)
}

// PUT /books/:id/author-summary
func (h *Handler) setAuthorSummary(c *gin.Context) {
	var dto authorSummaryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.svc.SetAuthorSummary(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), dto.AuthorSummary)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, b)
}

func writeError(c *gin.Context, err error) {
	switch {
	case quota.WriteError(c, err):
	case errors.Is(err, ErrNotFound):
		response.NotFoundMsg(c, ErrNotFound.Error())
	case errors.Is(err, ErrInvalid):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
