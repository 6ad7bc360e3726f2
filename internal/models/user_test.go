package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_JSONOmitsPasswordHash(t *testing.T) {
	u := &User{ID: "u1", Username: "jane", PasswordHash: "$2a$10$secret"}

	b, err := json.Marshal(u)
	require.NoError(t, err)

	assert.NotContains(t, string(b), "secret")
	assert.NotContains(t, string(b), "password")
}

func TestUser_OAuthViewHasNoGender(t *testing.T) {
	u := &User{ID: "g1", Fullname: "Jane", Gender: "female", ProfilePicture: "https://pic"}

	b, err := json.Marshal(u.OAuthView())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.NotContains(t, fields, "gender")
	assert.Equal(t, "https://pic", fields["profilePicture"])

	b, err = json.Marshal(u.PublicView())
	require.NoError(t, err)
	fields = nil
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.Equal(t, "female", fields["gender"])
}
