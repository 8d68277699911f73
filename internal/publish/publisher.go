package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/teemow/apkship/internal/drive"
	"github.com/teemow/apkship/internal/instrumentation"
	"github.com/teemow/apkship/internal/logging"
)

// Authorizer returns an HTTP client authorized for the Drive API.
type Authorizer interface {
	Authorize(ctx context.Context) (*http.Client, error)
}

// Drive is the part of the Drive facade the publisher uses.
type Drive interface {
	FindOrCreateFolder(ctx context.Context, name string) (string, error)
	UploadOrReplace(ctx context.Context, folderID, name, mimeType string, content io.Reader) (*drive.UploadResult, error)
}

// DriveFactory builds a Drive facade from an authorized client.
type DriveFactory func(ctx context.Context, httpClient *http.Client) (Drive, error)

// Config holds the collaborators and destination of a Publisher.
type Config struct {
	Authorizer Authorizer

	// NewDrive defaults to drive.NewClient
	NewDrive DriveFactory

	FolderName string
	FileName   string
	MimeType   string

	// Output receives the links of the uploaded file; nil means os.Stdout
	Output io.Writer

	Metrics *instrumentation.Metrics
	Logger  logging.Logger
}

// Publisher uploads an artifact to the configured Drive folder.
type Publisher struct {
	auth       Authorizer
	newDrive   DriveFactory
	folderName string
	fileName   string
	mimeType   string
	out        io.Writer
	metrics    *instrumentation.Metrics
	logger     logging.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(cfg Config) *Publisher {
	p := &Publisher{
		auth:       cfg.Authorizer,
		newDrive:   cfg.NewDrive,
		folderName: cfg.FolderName,
		fileName:   cfg.FileName,
		mimeType:   cfg.MimeType,
		out:        cfg.Output,
		metrics:    cfg.Metrics,
		logger:     logging.OrDefault(cfg.Logger),
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if p.newDrive == nil {
		p.newDrive = func(ctx context.Context, httpClient *http.Client) (Drive, error) {
			return drive.NewClient(ctx, httpClient, drive.WithMetrics(p.metrics), drive.WithLogger(p.logger))
		}
	}
	return p
}

// Publish uploads the artifact at artifactPath and prints its links.
// Nothing is retried; the first error aborts the upload and is returned.
func (p *Publisher) Publish(ctx context.Context, artifactPath string) (*drive.UploadResult, error) {
	ctx, span := instrumentation.StartSpan(ctx, "publish.upload",
		instrumentation.NewSpanAttributeBuilder().
			WithArtifact(artifactPath).
			WithFileName(p.fileName).
			Build()...)
	defer span.End()

	result, size, err := p.publish(ctx, artifactPath)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		p.metrics.RecordUpload(ctx, instrumentation.StatusError, "", 0)
		return nil, err
	}

	mode := instrumentation.UploadModeCreate
	if result.Replaced {
		mode = instrumentation.UploadModeReplace
	}
	p.metrics.RecordUpload(ctx, instrumentation.StatusSuccess, mode, size)
	instrumentation.SetSpanSuccess(span)

	p.logger.Info("artifact uploaded",
		logging.Status(logging.StatusSuccess),
		logging.FileID(result.ID),
		"mode", mode,
		"size", size)
	p.printResult(result)
	return result, nil
}

func (p *Publisher) publish(ctx context.Context, artifactPath string) (*drive.UploadResult, int64, error) {
	if p.auth == nil {
		return nil, 0, fmt.Errorf("no authorizer configured")
	}

	httpClient, err := p.auth.Authorize(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to authorize: %w", err)
	}

	client, err := p.newDrive(ctx, httpClient)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create Drive client: %w", err)
	}

	folderID, err := client.FindOrCreateFolder(ctx, p.folderName)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat artifact: %w", err)
	}

	result, err := client.UploadOrReplace(ctx, folderID, p.fileName, p.mimeType, f)
	if err != nil {
		return nil, 0, err
	}
	return result, info.Size(), nil
}

func (p *Publisher) printResult(result *drive.UploadResult) {
	action := "Uploaded"
	if result.Replaced {
		action = "Replaced"
	}
	fmt.Fprintf(p.out, "%s %s in %s\n", action, p.fileName, p.folderName)
	fmt.Fprintf(p.out, "View:     %s\n", result.Link())
	if result.WebContentLink != "" {
		fmt.Fprintf(p.out, "Download: %s\n", result.WebContentLink)
	}
}
