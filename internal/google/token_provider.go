package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TokenSourceFromRecord returns a token source that refreshes access tokens
// using the record's refresh token. No request is made until the first token
// is needed, so a revoked token only surfaces on the first API call.
func TokenSourceFromRecord(ctx context.Context, rec *Record, scopes []string) (oauth2.TokenSource, error) {
	if rec == nil || rec.RefreshToken == "" {
		return nil, fmt.Errorf("authorization record has no refresh token")
	}

	conf := &oauth2.Config{
		ClientID:     rec.ClientID,
		ClientSecret: rec.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}

	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken}), nil
}

// HTTPClient wraps a token source in an authorized HTTP client.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, ts)
}
