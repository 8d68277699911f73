package google

import (
	"context"
	"fmt"
	"net/http"

	"github.com/teemow/apkship/internal/instrumentation"
	"github.com/teemow/apkship/internal/logging"
)

// Bundle provides the Credential Bundle JSON.
type Bundle interface {
	Load(ctx context.Context) ([]byte, error)
}

// Authenticator produces authorized HTTP clients for the Google APIs.
type Authenticator struct {
	store   *Store
	bundle  Bundle
	flow    ConsentFlow
	scopes  []string
	metrics *instrumentation.Metrics
	logger  logging.Logger
}

// AuthenticatorConfig holds the collaborators of an Authenticator.
type AuthenticatorConfig struct {
	Store   *Store
	Bundle  Bundle
	Flow    ConsentFlow
	Scopes  []string
	Metrics *instrumentation.Metrics
	Logger  logging.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(cfg AuthenticatorConfig) *Authenticator {
	return &Authenticator{
		store:   cfg.Store,
		bundle:  cfg.Bundle,
		flow:    cfg.Flow,
		scopes:  scopesOrDefault(cfg.Scopes),
		metrics: cfg.Metrics,
		logger:  logging.OrDefault(cfg.Logger),
	}
}

// Authorize returns an authorized HTTP client.
//
// A stored Authorization Record is used as-is; no validity check is made
// beyond parsing it. Without one, the Credential Bundle is loaded (downloaded
// if needed), the consent flow runs, and the resulting refresh token is saved
// for later runs. Errors from the bundle, the flow or saving are returned.
func (a *Authenticator) Authorize(ctx context.Context) (*http.Client, error) {
	ctx, span := instrumentation.StartSpan(ctx, "google.authorize")
	defer span.End()

	if rec, ok := a.store.Load(); ok {
		ts, err := TokenSourceFromRecord(ctx, rec, a.scopes)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
			return nil, err
		}
		a.logger.Debug("using stored authorization", logging.Path(a.store.Path()))
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultCached)
		return HTTPClient(ctx, ts), nil
	}

	client, err := a.consent(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}
	a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	return client, nil
}

func (a *Authenticator) consent(ctx context.Context) (*http.Client, error) {
	data, err := a.bundle.Load(ctx)
	if err != nil {
		return nil, err
	}

	conf, err := ParseBundle(data, a.scopes)
	if err != nil {
		return nil, err
	}

	tok, err := a.flow.Run(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	if tok == nil {
		return nil, fmt.Errorf("authorization failed: no token returned")
	}

	if tok.RefreshToken != "" {
		rec := &Record{
			Type:         AuthorizedUserType,
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			RefreshToken: tok.RefreshToken,
		}
		if err := a.store.Save(rec); err != nil {
			return nil, err
		}
		a.logger.Info("authorization saved", logging.Path(a.store.Path()))
	} else {
		a.logger.Warn("authorization did not return a refresh token; it will not be reused")
	}

	return HTTPClient(ctx, conf.TokenSource(ctx, tok)), nil
}

// Reset removes the stored authorization so the next Authorize runs consent.
func (a *Authenticator) Reset() error {
	return a.store.Delete()
}

var _ ConsentFlow = (*LoopbackFlow)(nil)
