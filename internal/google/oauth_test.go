package google

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	store := NewStore(path, nil)

	_, ok := store.Load()
	assert.False(t, ok, "missing record should be absent")

	rec := &Record{
		Type:         AuthorizedUserType,
		ClientID:     "cid",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	}
	require.NoError(t, store.Save(rec))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestStore_RecordLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewStore(path, nil)
	require.NoError(t, store.Save(&Record{
		Type:         AuthorizedUserType,
		ClientID:     "cid",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, map[string]any{
		"type":          "authorized_user",
		"client_id":     "cid",
		"client_secret": "secret",
		"refresh_token": "refresh",
	}, fields)
}

func TestStore_LoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{oops"},
		{"wrong type", `{"type":"service_account","client_id":"c","refresh_token":"r"}`},
		{"no refresh token", `{"type":"authorized_user","client_id":"c"}`},
		{"no client id", `{"type":"authorized_user","refresh_token":"r"}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "token.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, ok := NewStore(path, nil).Load()
			assert.False(t, ok)
		})
	}
}

func TestStore_SaveReplacesAndTightensMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	store := NewStore(path, nil)
	require.NoError(t, store.Save(&Record{Type: AuthorizedUserType, ClientID: "c", RefreshToken: "r2"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "r2", got.RefreshToken)
}

func TestStore_SaveNil(t *testing.T) {
	require.Error(t, NewStore(filepath.Join(t.TempDir(), "t.json"), nil).Save(nil))
}

func TestStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewStore(path, nil)

	require.NoError(t, store.Delete(), "deleting a missing record is fine")

	require.NoError(t, store.Save(&Record{Type: AuthorizedUserType, ClientID: "c", RefreshToken: "r"}))
	require.NoError(t, store.Delete())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, ok := store.Load()
	assert.False(t, ok)
}

func TestTokenSourceFromRecord(t *testing.T) {
	_, err := TokenSourceFromRecord(t.Context(), nil, nil)
	require.Error(t, err)

	_, err = TokenSourceFromRecord(t.Context(), &Record{ClientID: "c"}, nil)
	require.Error(t, err)

	ts, err := TokenSourceFromRecord(t.Context(), &Record{ClientID: "c", RefreshToken: "r"}, DefaultOAuthScopes)
	require.NoError(t, err)
	assert.NotNil(t, ts)
}

func TestScopesOrDefault(t *testing.T) {
	assert.Equal(t, DefaultOAuthScopes, scopesOrDefault(nil))
	assert.Equal(t, []string{"x"}, scopesOrDefault([]string{"x"}))
}
