package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	a := New("Publicación rechazada", "Post Rejected", "acme", "policy violation", map[string]any{"post_id": "p1"}, PriorityHigh)

	mock.ExpectExec(`INSERT INTO alertas`).
		WithArgs(a.ID.String(), "Publicación rechazada", "post_rejected", "acme", "policy violation",
			`{"post_id":"p1"}`, "high", true, false, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewRepository(db).Insert(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Insert_Validation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	tests := []struct {
		name  string
		alert Alert
	}{
		{"missing title", New("", "x", "acme", "", nil, PriorityLow)},
		{"missing tenant", New("t", "x", "", "", nil, PriorityLow)},
		{"bad priority", New("t", "x", "acme", "", nil, Priority("urgent"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, repo.Insert(context.Background(), tt.alert))
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet(), "invalid alerts never reach the database")
}

func TestRepository_Insert_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO alertas`).WillReturnError(errors.New("relation does not exist"))

	err = NewRepository(db).Insert(context.Background(), New("t", "x", "acme", "", nil, PriorityLow))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestRepository_CountUnseenByTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"tenant", "count", "high"}).
		AddRow("acme", 3, 1).
		AddRow("globex", 1, 0)
	mock.ExpectQuery(`SELECT tenant, COUNT\(\*\)`).
		WithArgs(pq.Array([]string{})).
		WillReturnRows(rows)

	counts, err := NewRepository(db).CountUnseenByTenant(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []TenantCount{{Tenant: "acme", Count: 3, High: 1}, {Tenant: "globex", Count: 1}}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	_, err = ParsePriority("critical")
	assert.Error(t, err)
}
