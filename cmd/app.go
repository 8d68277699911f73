package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/teemow/apkship/internal/build"
	"github.com/teemow/apkship/internal/config"
	"github.com/teemow/apkship/internal/drive"
	"github.com/teemow/apkship/internal/google"
	"github.com/teemow/apkship/internal/instrumentation"
	"github.com/teemow/apkship/internal/logging"
	"github.com/teemow/apkship/internal/publish"
)

// app holds the configuration and shared services of one command run.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
}

func newApp(ctx context.Context, path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
	}, nil
}

// close flushes telemetry. It uses a fresh context so a cancelled run still
// reports.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}

func (a *app) authenticator() *google.Authenticator {
	logger := logging.WithService(a.logger, "oauth")
	return google.NewAuthenticator(google.AuthenticatorConfig{
		Store:   google.NewStore(a.cfg.RecordPath, logger),
		Bundle:  google.NewBundleFetcher(a.cfg.BundleURL, a.cfg.BundlePath, nil, logger),
		Flow:    google.NewLoopbackFlow(logger),
		Scopes:  a.cfg.Scopes,
		Metrics: a.provider.Metrics(),
		Logger:  logger,
	})
}

func (a *app) driveClient(ctx context.Context) (*drive.Client, error) {
	httpClient, err := a.authenticator().Authorize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize: %w", err)
	}
	return drive.NewClient(ctx, httpClient,
		drive.WithMetrics(a.provider.Metrics()),
		drive.WithLogger(logging.WithService(a.logger, instrumentation.ServiceDrive)))
}

func (a *app) publisher(out io.Writer) *publish.Publisher {
	return publish.NewPublisher(publish.Config{
		Authorizer: a.authenticator(),
		FolderName: a.cfg.FolderName,
		FileName:   a.cfg.FileName,
		MimeType:   a.cfg.MimeType,
		Output:     out,
		Metrics:    a.provider.Metrics(),
		Logger:     logging.WithOperation(a.logger, "publish"),
	})
}

func (a *app) runner(stdout, stderr io.Writer) *build.Runner {
	return &build.Runner{
		Command:      a.cfg.BuildCommand,
		Marker:       a.cfg.Marker,
		ArtifactPath: a.cfg.ArtifactPath,
		Stdin:        os.Stdin,
		Stdout:       stdout,
		Stderr:       stderr,
		Metrics:      a.provider.Metrics(),
		Logger:       logging.WithOperation(a.logger, "build"),
	}
}
