package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://u:p@localhost/db", "pgx://u:p@localhost/db"},
		{"pgx://u:p@localhost/db", "pgx://u:p@localhost/db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MigrateDSN(tt.in))
	}
}
