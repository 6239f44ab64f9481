package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctenarsky-denik/journal/internal/middleware"
	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/modules/content/book"
)

type handlerFixture struct {
	*pipelineFixture
	router  *gin.Engine
	library *book.Service
}

func newHandlerFixture(t *testing.T, replies ...reply) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newPipelineFixture(t, replies...)
	library := book.NewService(book.NewMemoryRepository(), f.ledger, nil)

	r := gin.New()
	auth := func(c *gin.Context) {
		uid := c.GetHeader("X-Test-User")
		if uid == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(middleware.ContextKeyUserID, uid)
		c.Next()
	}
	NewHandler(f.pipeline, f.ledger, library, nil).RegisterRoutes(r.Group("/api/v1"), auth)
	return &handlerFixture{pipelineFixture: f, router: r, library: library}
}

func (h *handlerFixture) post(path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandler_BookSummary(t *testing.T) {
	t.Parallel()
	h := newHandlerFixture(t, complete())

	w := h.post("/api/v1/ai/summaries/book", "u1", `{"title":"Babička","author":"Božena Němcová","preferences":{"style":"academic","length":"short"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[Result](t, w)
	assert.Equal(t, repeatSentences(5), res.Text)
	assert.False(t, res.FromCache)
	assert.Equal(t, 2, res.CreditsRemaining)
	assert.Equal(t, 3, res.CreditsTotal)

	w = h.post("/api/v1/ai/summaries/book", "u1", `{"title":"Babička","author":"Božena Němcová","preferences":{"style":"academic","length":"short"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[Result](t, w).FromCache)
}

func TestHandler_StatusMapping(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		replies []reply
		setup   func(t *testing.T, h *handlerFixture)
		path    string
		body    string
		status  int
	}{
		{
			name:   "malformed body",
			path:   "/api/v1/ai/summaries/book",
			body:   `{"title":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "missing title",
			path:   "/api/v1/ai/summaries/book",
			body:   `{"author":"Božena Němcová"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "save without book",
			path:   "/api/v1/ai/summaries/book",
			body:   `{"title":"Babička","author":"Božena Němcová","save":true}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "forged receipt",
			path:   "/api/v1/ai/summaries/book",
			body:   `{"title":"Babička","author":"Božena Němcová","creditsDeducted":true,"deductionReceipt":"nope"}`,
			status: http.StatusBadRequest,
		},
		{
			name: "no credits",
			setup: func(t *testing.T, h *handlerFixture) {
				h.account(t, "u1", quota.TierFree)
				_, err := h.ledger.Apply(context.Background(), "u1", quota.Patch{Credits: quota.Ptr(0)})
				require.NoError(t, err)
			},
			path:   "/api/v1/ai/summaries/book",
			body:   `{"title":"Babička","author":"Božena Němcová"}`,
			status: http.StatusPaymentRequired,
		},
		{
			name:   "author summary on free tier",
			path:   "/api/v1/ai/summaries/author",
			body:   `{"author":"Karel Čapek"}`,
			status: http.StatusForbidden,
		},
		{
			name:   "unknown book",
			path:   "/api/v1/ai/summaries/book",
			body:   `{"bookId":"missing"}`,
			status: http.StatusNotFound,
		},
		{
			name:    "upstream down",
			replies: []reply{{err: errors.New("503 from provider")}},
			path:    "/api/v1/ai/summaries/book",
			body:    `{"title":"Babička","author":"Božena Němcová"}`,
			status:  http.StatusBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			replies := tt.replies
			if replies == nil {
				replies = []reply{complete()}
			}
			h := newHandlerFixture(t, replies...)
			if tt.setup != nil {
				tt.setup(t, h)
			}
			w := h.post(tt.path, "u1", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestHandler_PaymentRequiredCarriesBalance(t *testing.T) {
	t.Parallel()
	h := newHandlerFixture(t, complete())
	h.account(t, "u1", quota.TierFree)
	_, err := h.ledger.Apply(context.Background(), "u1", quota.Patch{Credits: quota.Ptr(0)})
	require.NoError(t, err)

	w := h.post("/api/v1/ai/summaries/book", "u1", `{"title":"Babička","author":"Božena Němcová"}`)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 0, body["remaining"])
	assert.EqualValues(t, 0, body["total"])
}

func TestHandler_SaveToBook(t *testing.T) {
	t.Parallel()
	h := newHandlerFixture(t, complete())
	ctx := context.Background()

	b, err := h.library.Create(ctx, "u1", "", &models.BookModel{
		Title:  "R.U.R.",
		Author: "Karel Čapek",
		Notes:  "Roboti se vzbouří.",
	})
	require.NoError(t, err)

	w := h.post("/api/v1/ai/summaries/book", "u1", `{"bookId":"`+b.ID+`","save":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	calls := h.completer.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, "R.U.R.")
	assert.Contains(t, calls[0].User, "Roboti se vzbouří.")

	saved, err := h.library.Get(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, repeatSentences(5), saved.Summary)
	assert.Equal(t, models.SummaryAI, saved.SummarySource)

	// Another user's book is invisible.
	w = h.post("/api/v1/ai/summaries/book", "u2", `{"bookId":"`+b.ID+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_SaveAuthorSummary(t *testing.T) {
	t.Parallel()
	h := newHandlerFixture(t, complete())
	ctx := context.Background()
	h.account(t, "u1", quota.TierBasic)

	b, err := h.library.Create(ctx, "u1", "", &models.BookModel{Title: "Válka s mloky", Author: "Karel Čapek"})
	require.NoError(t, err)

	w := h.post("/api/v1/ai/summaries/author", "u1", `{"bookId":"`+b.ID+`","save":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	saved, err := h.library.Get(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, repeatSentences(5), saved.AuthorSummary)
	assert.Empty(t, saved.Summary)
}

func TestHandler_ConsumeCreditThenGenerate(t *testing.T) {
	t.Parallel()
	h := newHandlerFixture(t, complete())

	w := h.post("/api/v1/ai/credits/consume", "u1", `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	issued := decode[struct {
		DeductionReceipt string `json:"deductionReceipt"`
		CreditsRemaining int    `json:"creditsRemaining"`
		CreditsTotal     int    `json:"creditsTotal"`
	}](t, w)
	require.NotEmpty(t, issued.DeductionReceipt)
	assert.Equal(t, 2, issued.CreditsRemaining)
	assert.Equal(t, 3, issued.CreditsTotal)

	w = h.post("/api/v1/ai/summaries/book", "u1",
		`{"title":"Babička","author":"Božena Němcová","notes":"moje","creditsDeducted":true,"deductionReceipt":"`+issued.DeductionReceipt+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[Result](t, w).CreditsRemaining)

	// Spend the rest, then the endpoint refuses.
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, h.post("/api/v1/ai/credits/consume", "u1", `{}`).Code)
	}
	assert.Equal(t, http.StatusPaymentRequired, h.post("/api/v1/ai/credits/consume", "u1", `{}`).Code)
}

func TestHandler_Models(t *testing.T) {
	t.Parallel()
	h := newHandlerFixture(t, complete())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ai/models", nil)
	req.Header.Set("X-Test-User", "u1")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testModels, decode[Models](t, w))

	assert.Equal(t, http.StatusUnauthorized, h.post("/api/v1/ai/summaries/book", "", `{}`).Code)
}
