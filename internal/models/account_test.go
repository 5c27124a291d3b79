package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_CarriesIDWithoutSecrets(t *testing.T) {
	a := NewAccount(AccountFields{Email: "A@X.com"}, "$2a$04$hash", time.Now())

	body, err := json.Marshal(a.Profile())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, a.ID.String(), got["id"])
	assert.NotContains(t, string(body), "$2a$04$hash")
	assert.NotContains(t, got, "login_valid_from")
}
