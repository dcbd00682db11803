// Package memory is a process local store for the user and verification code
// records. It backs STORAGE=memory and the application tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
)

type userRow struct {
	ID        user.ID
	Email     string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type codeRow struct {
	ID        verification.ID
	Email     string
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// DB holds both tables. Codes are kept in insertion order, which breaks ties
// between codes created at the same instant.
type DB struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	users map[user.ID]userRow
	codes []codeRow
}

func NewDB() *DB {
	return &DB{
		users: make(map[user.ID]userRow),
	}
}

type snapshot struct {
	users map[user.ID]userRow
	codes []codeRow
}

func (db *DB) snapshot() snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()

	users := make(map[user.ID]userRow, len(db.users))
	for k, v := range db.users {
		users[k] = v
	}
	return snapshot{users: users, codes: slices.Clone(db.codes)}
}

func (db *DB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users = s.users
	db.codes = s.codes
}

type txKey struct{}

// Transactor serializes units of work and undoes every write of a unit that
// fails or panics.
type Transactor struct {
	db *DB
}

func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	before := t.db.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.db.restore(before)
			panic(p)
		}
		if err != nil {
			t.db.restore(before)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}
