package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localpulse/jobs/pkg/database/dbtest"
	"github.com/localpulse/jobs/pkg/models"
)

func TestFetchUnpublishedPosts(t *testing.T) {
	id := uuid.New()
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	db := &dbtest.MockDB{
		QueryFunc: func(query string, args []interface{}) (pgx.Rows, error) {
			return dbtest.NewRows(
				[]interface{}{id, "acme", "acc-1", "loc-1", "Hola", "", "", false, false, created},
			), nil
		},
	}

	cutoff := created.AddDate(0, 0, -7)
	posts, err := New(db).FetchUnpublishedPosts(context.Background(), cutoff, 50)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, id, posts[0].ID)
	assert.Equal(t, "acc-1", posts[0].AccountID)

	call := db.Calls()[0]
	assert.Contains(t, call.Query, "NOT p.published AND NOT p.rejected")
	assert.Contains(t, call.Query, "btrim(p.message) <> ''")
	assert.Equal(t, []interface{}{cutoff, 50}, call.Args)
}

func TestFetchUnpublishedPosts_QueryError(t *testing.T) {
	db := &dbtest.MockDB{
		QueryFunc: func(string, []interface{}) (pgx.Rows, error) { return nil, errors.New("timeout") },
	}

	_, err := New(db).FetchUnpublishedPosts(context.Background(), time.Now(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestMarkPostPublished(t *testing.T) {
	db := &dbtest.MockDB{}
	id := uuid.New()

	require.NoError(t, New(db).MarkPostPublished(context.Background(), id, "posts/9"))

	calls := db.CallsMatching("published_at = now()")
	require.Len(t, calls, 1)
	assert.Equal(t, []interface{}{id, "posts/9"}, calls[0].Args)
}

func TestUpsertReview_ReportsInsert(t *testing.T) {
	tests := []struct {
		name     string
		inserted bool
	}{
		{"new review", true},
		{"existing review", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &dbtest.MockDB{
				QueryRowFunc: func(string, []interface{}) pgx.Row {
					return &dbtest.Row{Values: []interface{}{tt.inserted}}
				},
			}

			got, err := New(db).UpsertReview(context.Background(), models.Review{ReviewID: "r1", Rating: 1})
			require.NoError(t, err)
			assert.Equal(t, tt.inserted, got)
		})
	}
}

func TestPendingNegativeReviews(t *testing.T) {
	at := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	db := &dbtest.MockDB{
		QueryFunc: func(query string, args []interface{}) (pgx.Rows, error) {
			return dbtest.NewRows(
				[]interface{}{"r1", "loc-1", "acme", 1, "malo", "Ana", at, nil, false},
			), nil
		},
	}

	reviews, err := New(db).PendingNegativeReviews(context.Background(), "loc-1", 2)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Nil(t, reviews[0].Reply)
	assert.Equal(t, []interface{}{"loc-1", 2}, db.Calls()[0].Args)
}

func TestUpsertInsight(t *testing.T) {
	db := &dbtest.MockDB{}
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	err := New(db).UpsertInsight(context.Background(), models.AdInsight{
		AccountID: "act_1", CampaignID: "c1", Date: day, Tenant: "acme", Spend: 12.5,
	})
	require.NoError(t, err)
	require.Len(t, db.CallsMatching("ON CONFLICT (account_id, campaign_id, date)"), 1)
}

func TestActiveCalendarLinks(t *testing.T) {
	token := "tok"
	db := &dbtest.MockDB{
		QueryFunc: func(string, []interface{}) (pgx.Rows, error) {
			return dbtest.NewRows(
				[]interface{}{"cal-1", "acme", &token},
				[]interface{}{"cal-2", "acme", nil},
			), nil
		},
	}

	links, err := New(db).ActiveCalendarLinks(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "tok", *links[0].SyncToken)
	assert.Nil(t, links[1].SyncToken)
}

func TestSetSyncToken_Clear(t *testing.T) {
	db := &dbtest.MockDB{}

	require.NoError(t, New(db).SetSyncToken(context.Background(), "cal-1", nil))
	assert.Equal(t, []interface{}{"cal-1", (*string)(nil)}, db.Calls()[0].Args)
}
