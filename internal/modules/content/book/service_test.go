package book

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *quota.Ledger) {
	t.Helper()
	ledger := quota.NewLedger(quota.NewMemoryStore(), quota.NewMemoryReceipts(), quota.NewPlans(nil), nil)
	return NewService(NewMemoryRepository(), ledger, nil), ledger
}

func TestService_FreeTierBookLimit(t *testing.T) {
	t.Parallel()
	svc, ledger := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := svc.Create(ctx, "u1", "", &models.BookModel{Title: fmt.Sprintf("Book %d", i)})
		require.NoError(t, err)
	}

	_, err := svc.Create(ctx, "u1", "", &models.BookModel{Title: "One too many"})
	require.Error(t, err)
	var entErr *quota.EntitlementError
	require.True(t, errors.As(err, &entErr))
	assert.Equal(t, quota.FeatureBooks, entErr.Feature)
	assert.Equal(t, quota.TierBasic, entErr.Required)

	// Other users are unaffected.
	_, err = svc.Create(ctx, "u2", "", &models.BookModel{Title: "Mine"})
	require.NoError(t, err)

	_, err = ledger.Reset(ctx, "u1", quota.TierBasic)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", "", &models.BookModel{Title: "Now allowed"})
	require.NoError(t, err)
}

func TestService_ScopedToOwner(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, "u1", "", &models.BookModel{Title: "  Babička ", Author: "Božena Němcová"})
	require.NoError(t, err)
	assert.Equal(t, "Babička", b.Title)
	assert.Equal(t, "u1", b.UserID)

	_, err = svc.Get(ctx, "u2", b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "u2", b.ID), ErrNotFound)

	got, err := svc.Get(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Božena Němcová", got.Author)
}

func TestService_UpdateAndSummaries(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, "u1", "", &models.BookModel{Title: "R.U.R."})
	require.NoError(t, err)

	empty := " "
	_, err = svc.Update(ctx, "u1", b.ID, Changes{Title: &empty})
	assert.ErrorIs(t, err, ErrInvalid)

	author := "Karel Čapek"
	updated, err := svc.Update(ctx, "u1", b.ID, Changes{Author: &author})
	require.NoError(t, err)
	assert.Equal(t, "Karel Čapek", updated.Author)
	assert.Equal(t, "R.U.R.", updated.Title)

	updated, err = svc.SetNotes(ctx, "u1", b.ID, "roboti")
	require.NoError(t, err)
	assert.Equal(t, "roboti", updated.Notes)

	updated, err = svc.SetSummary(ctx, "u1", b.ID, "Drama o robotech.", "")
	require.NoError(t, err)
	assert.Equal(t, models.SummaryManual, updated.SummarySource)

	updated, err = svc.SetSummary(ctx, "u1", b.ID, "AI text.", models.SummaryAI)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryAI, updated.SummarySource)

	_, err = svc.SetSummary(ctx, "u1", b.ID, "x", "robot")
	assert.ErrorIs(t, err, ErrInvalid)

	updated, err = svc.SetAuthorSummary(ctx, "u1", b.ID, "Čapek byl spisovatel.")
	require.NoError(t, err)
	assert.Equal(t, "Čapek byl spisovatel.", updated.AuthorSummary)
	assert.Equal(t, "AI text.", updated.Summary)
}

func TestService_ListPaginates(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, "u1", "", &models.BookModel{Title: fmt.Sprintf("B%d", i)})
		require.NoError(t, err)
	}
	items, meta, err := svc.List(ctx, "u1", pagination.Query{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 5, meta.Total)
	assert.Equal(t, 3, meta.TotalPage)
	assert.True(t, meta.HasNextPage)

	items, meta, err = svc.List(ctx, "u1", pagination.Query{Page: 3, Size: 2})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.False(t, meta.HasNextPage)
}
