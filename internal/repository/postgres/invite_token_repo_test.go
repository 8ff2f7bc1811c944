package postgres

import (
	"context"
	"database/sql"
	"testing"

	"attendanceingest/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestInviteTokenRepository_GetByValue(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM invitetokens\s+WHERE event_id = \$1 AND value = \$2`).
			WithArgs(int64(3), "doron").
			WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "category", "value"}).
				AddRow(8, 3, "personal outreach", "doron"))

		got, err := NewInviteTokenRepository(db).GetByValue(ctx, 3, "doron")
		require.NoError(t, err)
		require.Equal(t, &domain.InviteToken{ID: 8, EventID: 3, Category: domain.TokenCategoryPersonalOutreach, Value: "doron"}, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM invitetokens`).
			WithArgs(int64(3), "default").
			WillReturnError(sql.ErrNoRows)

		got, err := NewInviteTokenRepository(db).GetByValue(ctx, 3, "default")
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.Nil(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInviteTokenRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`INSERT INTO invitetokens \(event_id, category, value\)`).
		WithArgs(int64(3), "mailing list", "default").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

	token := &domain.InviteToken{EventID: 3, Category: domain.TokenCategoryMailingList, Value: "default"}
	require.NoError(t, NewInviteTokenRepository(db).Create(context.Background(), token))
	require.Equal(t, int64(21), token.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
