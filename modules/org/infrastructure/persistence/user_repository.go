package persistence

import (
	"context"

	"github.com/f3nation/f3map/pkg/composables"
)

// User is the local record grants point at. Accounts themselves live with the
// auth provider.
type User struct {
	ID    int64  `yaml:"id"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

func (r *UserRepository) Upsert(ctx context.Context, u User) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO users (id, email, name)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name
`, u.ID, u.Email, u.Name)
	return err
}
