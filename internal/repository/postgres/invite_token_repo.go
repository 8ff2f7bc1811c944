package postgres

import (
	"context"
	"database/sql"
	"errors"

	"attendanceingest/internal/domain"
)

type inviteTokenRepository struct {
	DB DBTX
}

// NewInviteTokenRepository returns a domain.InviteTokenRepository implemented with Postgres.
func NewInviteTokenRepository(db DBTX) domain.InviteTokenRepository {
	return &inviteTokenRepository{DB: db}
}

func (r *inviteTokenRepository) GetByValue(ctx context.Context, eventID int64, value string) (*domain.InviteToken, error) {
	query := `
		SELECT id, event_id, category, value
		FROM invitetokens
		WHERE event_id = $1 AND value = $2
	`
	t := &domain.InviteToken{}
	var category string
	err := r.DB.QueryRowContext(ctx, query, eventID, value).Scan(&t.ID, &t.EventID, &category, &t.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	t.Category = domain.TokenCategory(category)
	return t, nil
}

func (r *inviteTokenRepository) Create(ctx context.Context, t *domain.InviteToken) error {
	query := `
		INSERT INTO invitetokens (event_id, category, value)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, t.EventID, string(t.Category), t.Value).Scan(&t.ID)
}
