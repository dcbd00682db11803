package memory

import (
	"context"

	"gitlab.com/codeauth/codeauth-backend/internal/adapters/repos"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
)

type VerificationCodeRepo struct {
	db *DB
}

func NewVerificationCodeRepo(db *DB) *VerificationCodeRepo {
	return &VerificationCodeRepo{db: db}
}

func (r *VerificationCodeRepo) SaveVerificationCode(ctx context.Context, c *verification.Code) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.codes = append(r.db.codes, codeRow{
		ID:        c.ID(),
		Email:     c.Email(),
		Code:      c.Code(),
		ExpiresAt: c.ExpiresAt(),
		Used:      c.IsUsed(),
		CreatedAt: c.CreatedAt(),
	})
	return nil
}

// GetUnusedVerificationCode returns the most recent unused code matching both
// email and value.
func (r *VerificationCodeRepo) GetUnusedVerificationCode(ctx context.Context, email, code string) (*verification.Code, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.latest(func(row codeRow) bool {
		return !row.Used && row.Email == email && row.Code == code
	})
}

// GetLatestVerificationCode returns the most recent code for email, used or not.
func (r *VerificationCodeRepo) GetLatestVerificationCode(ctx context.Context, email string) (*verification.Code, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.latest(func(row codeRow) bool {
		return row.Email == email
	})
}

// MarkVerificationCodeUsed flips used only if it is still false.
func (r *VerificationCodeRepo) MarkVerificationCodeUsed(ctx context.Context, id verification.ID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i := range r.db.codes {
		if r.db.codes[i].ID != id {
			continue
		}
		if r.db.codes[i].Used {
			return verification.ErrAlreadyUsed
		}
		r.db.codes[i].Used = true
		return nil
	}
	return repos.ErrNotFound
}

// latest must be called with the read lock held.
func (r *VerificationCodeRepo) latest(match func(codeRow) bool) (*verification.Code, error) {
	var (
		best  codeRow
		found bool
	)
	for _, row := range r.db.codes {
		if !match(row) {
			continue
		}
		if !found || !row.CreatedAt.Before(best.CreatedAt) {
			best, found = row, true
		}
	}
	if !found {
		return nil, repos.ErrNotFound
	}

	return verification.Rehydrate(verification.RehydrateArgs{
		ID:        best.ID,
		Email:     best.Email,
		Code:      best.Code,
		ExpiresAt: best.ExpiresAt,
		Used:      best.Used,
		CreatedAt: best.CreatedAt,
	}), nil
}
