package ctxs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
)

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, ok := UserFromCtx(ctx)
	assert.False(t, ok)

	id := user.ID(uuid.New())
	got, ok := UserFromCtx(WithUser(ctx, &User{ID: id}))
	require.True(t, ok)
	assert.Equal(t, id, got.ID)
}

func TestTx_AbsentAndNil(t *testing.T) {
	_, ok := Tx(context.Background())
	assert.False(t, ok)

	_, ok = Tx(WithTx(context.Background(), nil))
	assert.False(t, ok)
}
