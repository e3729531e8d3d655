package store

import (
	"context"

	"starkpay/internal/models"
)

type UserStore struct {
	db DB
}

const userColumns = `id, username, email, phone, password_hash, role, business_id, bank_account_id`

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	return s.getBy(ctx, "id", id)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getBy(ctx, "email", email)
}

func (s *UserStore) GetByPhone(ctx context.Context, phone string) (models.User, error) {
	return s.getBy(ctx, "phone", phone)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getBy(ctx, "username", username)
}

// column is always one of the constants above, never user input.
func (s *UserStore) getBy(ctx context.Context, column, value string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	return row, err
}

func (s *UserStore) HasRole(ctx context.Context, userID string, role models.Role) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE id = $1 AND role = $2
		)
	`, userID, role)
	return exists, err
}
