package verification_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
)

func TestCodeIssued_JSONShape(t *testing.T) {
	t.Parallel()

	e := verification.NewCodeIssued(context.Background(), "user@example.com", "012345")
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "user@example.com", decoded["email"])
	assert.Equal(t, "012345", decoded["code"])
	assert.Contains(t, decoded, "header")

	var back verification.CodeIssued
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, e.Header.ID, back.Header.ID)
	assert.Equal(t, verification.EventStreamName, back.GetStreamName())
}

func TestCodeIssued_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		email   string
		code    string
		wantErr bool
	}{
		{name: "valid", email: "user@example.com", code: "123456"},
		{name: "missing email", email: "", code: "123456", wantErr: true},
		{name: "bad email", email: "nope", code: "123456", wantErr: true},
		{name: "short code", email: "user@example.com", code: "123", wantErr: true},
		{name: "non digit code", email: "user@example.com", code: "12345a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := verification.NewCodeIssued(context.Background(), tt.email, tt.code).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
