package store

import (
	"context"

	"wallet/internal/models"
)

type CardStore struct {
	db DB
}

func NewCardStore(db DB) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) GetByID(ctx context.Context, cardID string) (models.Card, error) {
	var row models.Card
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, last_four, expires_at, created_at
		FROM cards
		WHERE id = $1
	`, cardID)
	if err != nil {
		return models.Card{}, err
	}
	return row, nil
}
