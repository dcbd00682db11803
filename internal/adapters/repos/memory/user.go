package memory

import (
	"context"

	"gitlab.com/codeauth/codeauth-backend/internal/adapters/repos"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, row := range r.db.users {
		if row.Email == email {
			return userToDomain(row), nil
		}
	}
	return nil, repos.ErrNotFound
}

func (r *UserRepo) GetUserByID(ctx context.Context, id user.ID) (*user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	row, ok := r.db.users[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return userToDomain(row), nil
}

// SaveUser inserts u or updates the row with its id. The verified flag never
// goes back to false.
func (r *UserRepo) SaveUser(ctx context.Context, u *user.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, row := range r.db.users {
		if row.Email == u.Email() && id != u.ID() {
			return repos.ErrDuplicateEmail
		}
	}

	row := userRow{
		ID:        u.ID(),
		Email:     u.Email(),
		Verified:  u.IsVerified(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
	if existing, ok := r.db.users[u.ID()]; ok {
		row.Verified = row.Verified || existing.Verified
		row.CreatedAt = existing.CreatedAt
	}
	r.db.users[u.ID()] = row
	return nil
}

func userToDomain(row userRow) *user.User {
	return user.Rehydrate(user.RehydrateArgs{
		ID:        row.ID,
		Email:     row.Email,
		Verified:  row.Verified,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	})
}
