package google

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeBundle struct {
	data  []byte
	err   error
	calls int
}

func (b *fakeBundle) Load(context.Context) ([]byte, error) {
	b.calls++
	return b.data, b.err
}

type fakeFlow struct {
	token *oauth2.Token
	err   error
	calls int
	conf  *oauth2.Config
}

func (f *fakeFlow) Run(_ context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	f.calls++
	f.conf = conf
	return f.token, f.err
}

func newTestAuthenticator(t *testing.T, bundle *fakeBundle, flow *fakeFlow) (*Authenticator, *Store) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "token.json"), nil)
	return NewAuthenticator(AuthenticatorConfig{
		Store:  store,
		Bundle: bundle,
		Flow:   flow,
	}), store
}

func TestAuthorize_UsesStoredRecord(t *testing.T) {
	bundle := &fakeBundle{data: []byte(testBundle)}
	flow := &fakeFlow{}
	auth, store := newTestAuthenticator(t, bundle, flow)
	require.NoError(t, store.Save(&Record{Type: AuthorizedUserType, ClientID: "c", ClientSecret: "s", RefreshToken: "r"}))

	client, err := auth.Authorize(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, 0, bundle.calls, "bundle must not be loaded")
	assert.Equal(t, 0, flow.calls, "consent must not run")
}

func TestAuthorize_RunsConsentAndSavesRecord(t *testing.T) {
	bundle := &fakeBundle{data: []byte(testBundle)}
	flow := &fakeFlow{token: &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}}
	auth, store := newTestAuthenticator(t, bundle, flow)

	client, err := auth.Authorize(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, 1, bundle.calls)
	assert.Equal(t, 1, flow.calls)
	assert.Equal(t, DefaultOAuthScopes, flow.conf.Scopes)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, map[string]any{
		"type":          "authorized_user",
		"client_id":     "cid.apps.googleusercontent.com",
		"client_secret": "csecret",
		"refresh_token": "rt",
	}, fields)

	// second run reuses the record
	_, err = auth.Authorize(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, flow.calls)
}

func TestAuthorize_NoRefreshTokenIsNotSaved(t *testing.T) {
	flow := &fakeFlow{token: &oauth2.Token{AccessToken: "at"}}
	auth, store := newTestAuthenticator(t, &fakeBundle{data: []byte(testBundle)}, flow)

	client, err := auth.Authorize(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, ok := store.Load()
	assert.False(t, ok)
}

func TestAuthorize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		bundle *fakeBundle
		flow   *fakeFlow
	}{
		{"bundle unavailable", &fakeBundle{err: errors.New("offline")}, &fakeFlow{}},
		{"bundle invalid", &fakeBundle{data: []byte("nope")}, &fakeFlow{}},
		{"consent denied", &fakeBundle{data: []byte(testBundle)}, &fakeFlow{err: errors.New("access_denied")}},
		{"no token", &fakeBundle{data: []byte(testBundle)}, &fakeFlow{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, store := newTestAuthenticator(t, tt.bundle, tt.flow)

			_, err := auth.Authorize(t.Context())
			require.Error(t, err)

			_, ok := store.Load()
			assert.False(t, ok, "no record saved on failure")
		})
	}
}

func TestAuthenticator_Reset(t *testing.T) {
	flow := &fakeFlow{token: &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}}
	auth, store := newTestAuthenticator(t, &fakeBundle{data: []byte(testBundle)}, flow)
	require.NoError(t, store.Save(&Record{Type: AuthorizedUserType, ClientID: "c", RefreshToken: "r"}))

	require.NoError(t, auth.Reset())
	_, ok := store.Load()
	assert.False(t, ok)

	_, err := auth.Authorize(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, flow.calls)
}
