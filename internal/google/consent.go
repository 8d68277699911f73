package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cli/browser"
	"golang.org/x/oauth2"

	"github.com/teemow/apkship/internal/logging"
)

// CallbackPath is the path the loopback listener serves the OAuth redirect on.
const CallbackPath = "/oauth2callback"

// ConsentFlow obtains a token from the user for the given client config.
type ConsentFlow interface {
	Run(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)
}

// LoopbackFlow runs the installed-app consent flow: it serves the redirect on
// a loopback port, opens the consent screen in the browser and exchanges the
// returned code (with PKCE) for a token.
type LoopbackFlow struct {
	// OpenURL opens the consent URL. Defaults to the system browser.
	OpenURL func(url string) error

	// Timeout bounds the wait for the user. Zero means no limit beyond ctx.
	Timeout time.Duration

	Logger logging.Logger
}

// NewLoopbackFlow creates a LoopbackFlow that opens the system browser.
func NewLoopbackFlow(logger logging.Logger) *LoopbackFlow {
	return &LoopbackFlow{
		OpenURL: browser.OpenURL,
		Logger:  logger,
	}
}

type callbackResult struct {
	code string
	err  error
}

// Run executes the consent flow. conf is not modified.
func (f *LoopbackFlow) Run(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	logger := logging.OrDefault(f.Logger)

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	flowConf := *conf
	flowConf.RedirectURL = fmt.Sprintf("http://%s%s", ln.Addr().String(), CallbackPath)

	state, err := randomState()
	if err != nil {
		ln.Close()
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = errors.New("consent callback state mismatch")
		case q.Get("error") != "":
			res.err = fmt.Errorf("consent denied: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("consent callback did not include a code")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
		}

		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("consent callback server failed", logging.Err(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := flowConf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	logger.Info("opening browser for Google authorization; if it does not open, visit the URL manually", "url", authURL)
	if f.OpenURL != nil {
		if err := f.OpenURL(authURL); err != nil {
			logger.Warn("failed to open browser", logging.Err(err))
		}
	}

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization was not completed: %w", ctx.Err())
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := flowConf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
