package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/apkship/internal/instrumentation"
	"github.com/teemow/apkship/internal/logging"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders
	FolderMimeType = "application/vnd.google-apps.folder"

	lookupFields = "files(id, name, createdTime)"
	uploadFields = "id, name, mimeType, size, webViewLink, webContentLink, parents"
	listFields   = "nextPageToken, files(id, name, mimeType, size, createdTime, modifiedTime, webViewLink, webContentLink, parents)"
)

// Client wraps the Google Drive API service with the folder lookup and
// upload-or-replace operations the publish workflow needs.
type Client struct {
	service *drive.Service
	metrics *instrumentation.Metrics
	logger  logging.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	apiOptions []option.ClientOption
	metrics    *instrumentation.Metrics
	logger     logging.Logger
}

// WithEndpoint points the client at a different Drive API base URL.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) {
		o.apiOptions = append(o.apiOptions, option.WithEndpoint(endpoint))
	}
}

// WithMetrics records Drive operations on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *clientOptions) {
		o.metrics = m
	}
}

// WithLogger sets the client logger.
func WithLogger(l logging.Logger) Option {
	return func(o *clientOptions) {
		o.logger = l
	}
}

// NewClient creates a Drive client that authenticates with httpClient,
// typically the one returned by the authenticator.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("authorized HTTP client is required")
	}

	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	apiOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, o.apiOptions...)
	driveService, err := drive.NewService(ctx, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{
		service: driveService,
		metrics: o.metrics,
		logger:  logging.OrDefault(o.logger),
	}, nil
}

// FindOrCreateFolder returns the ID of the non-trashed folder named name,
// creating it if none exists. Lookup and creation are not atomic: two
// concurrent callers can both create the folder.
func (c *Client) FindOrCreateFolder(ctx context.Context, name string) (string, error) {
	id, found, err := c.FindFolder(ctx, name)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}

	folder, err := c.CreateFolder(ctx, name, nil)
	if err != nil {
		return "", err
	}
	c.logger.Info("created folder", "folder", name, logging.FileID(folder.ID))
	return folder.ID, nil
}

// FindFolder returns the ID of the non-trashed folder named name. With
// several matches the oldest wins and a warning is logged.
func (c *Client) FindFolder(ctx context.Context, name string) (id string, found bool, err error) {
	if name == "" {
		return "", false, fmt.Errorf("folder name is required")
	}

	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), FolderMimeType)
	folders, err := c.lookup(ctx, query)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up folder %q: %w", name, err)
	}
	if len(folders) == 0 {
		return "", false, nil
	}

	if len(folders) > 1 {
		c.logger.Warn("multiple folders share the target name, using the oldest",
			"folder", name,
			"matches", len(folders),
			logging.FileID(folders[0].Id))
	}
	return folders[0].Id, true, nil
}

// FindFileInFolder returns the ID of the first non-trashed file named name
// inside folderID. found is false when there is none.
func (c *Client) FindFileInFolder(ctx context.Context, folderID, name string) (id string, found bool, err error) {
	if folderID == "" {
		return "", false, fmt.Errorf("folderID is required")
	}
	if name == "" {
		return "", false, fmt.Errorf("file name is required")
	}

	query := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false", escapeQuery(folderID), escapeQuery(name))
	files, err := c.lookup(ctx, query)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up file %q: %w", name, err)
	}
	if len(files) == 0 {
		return "", false, nil
	}
	return files[0].Id, true, nil
}

// UploadOrReplace stores content as name inside folderID. An existing file of
// that name has its content replaced in place, keeping its ID and sharing
// settings; otherwise a new file is created in the folder. content is read
// once, to the end, as the request body. There is no resumable retry.
func (c *Client) UploadOrReplace(ctx context.Context, folderID, name, mimeType string, content io.Reader) (*UploadResult, error) {
	if content == nil {
		return nil, fmt.Errorf("file content is required")
	}

	existingID, found, err := c.FindFileInFolder(ctx, folderID, name)
	if err != nil {
		return nil, err
	}

	if found {
		file, err := c.replaceContent(ctx, existingID, mimeType, content)
		if err != nil {
			return nil, err
		}
		return newUploadResult(file, true), nil
	}

	file, err := c.create(ctx, folderID, name, mimeType, content)
	if err != nil {
		return nil, err
	}
	return newUploadResult(file, false), nil
}

// CreateFolder creates a new folder in Google Drive
func (c *Client) CreateFolder(ctx context.Context, name string, parentFolders []string) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	file := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}
	if len(parentFolders) > 0 {
		file.Parents = parentFolders
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceDrive, instrumentation.OperationCreate,
		instrumentation.NewSpanAttributeBuilder().WithFileName(name).Build()...)
	defer span.End()
	start := time.Now()

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Fields("id, name, mimeType, createdTime, webViewLink, parents").
		Do()
	c.record(ctx, instrumentation.OperationCreate, start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return convertToFileInfo(driveFile), nil
}

// ListFolder lists the non-trashed files inside folderID, following pagination.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]*FileInfo, error) {
	if folderID == "" {
		return nil, fmt.Errorf("folderID is required")
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceDrive, instrumentation.OperationList)
	defer span.End()
	start := time.Now()

	var files []*FileInfo
	err := c.service.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))).
		Spaces("drive").
		OrderBy("name").
		Fields(listFields).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, convertToFileInfo(f))
			}
			return nil
		})
	c.record(ctx, instrumentation.OperationList, start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// lookup runs a name query and returns the matches, oldest first.
func (c *Client) lookup(ctx context.Context, query string) ([]*drive.File, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceDrive, instrumentation.OperationList)
	defer span.End()
	start := time.Now()

	fileList, err := c.service.Files.List().
		Context(ctx).
		Q(query).
		Spaces("drive").
		OrderBy("createdTime").
		Fields(lookupFields).
		Do()
	c.record(ctx, instrumentation.OperationList, start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	return fileList.Files, nil
}

func (c *Client) replaceContent(ctx context.Context, fileID, mimeType string, content io.Reader) (*drive.File, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceDrive, instrumentation.OperationUpdate,
		instrumentation.NewSpanAttributeBuilder().WithFileID(fileID).Build()...)
	defer span.End()
	start := time.Now()

	driveFile, err := c.service.Files.Update(fileID, &drive.File{}).
		Context(ctx).
		Media(content, googleapi.ContentType(mimeType)).
		SupportsAllDrives(true).
		Fields(uploadFields).
		Do()
	c.record(ctx, instrumentation.OperationUpdate, start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to update file %s: %w", fileID, err)
	}

	c.logger.Info("file content replaced", logging.FileID(driveFile.Id))
	return driveFile, nil
}

func (c *Client) create(ctx context.Context, folderID, name, mimeType string, content io.Reader) (*drive.File, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceDrive, instrumentation.OperationCreate,
		instrumentation.NewSpanAttributeBuilder().WithFileName(name).Build()...)
	defer span.End()
	start := time.Now()

	file := &drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{folderID},
	}

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Media(content, googleapi.ContentType(mimeType)).
		SupportsAllDrives(true).
		Fields(uploadFields).
		Do()
	c.record(ctx, instrumentation.OperationCreate, start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	c.logger.Info("file created", logging.FileID(driveFile.Id))
	return driveFile, nil
}

func (c *Client) record(ctx context.Context, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	duration := time.Since(start)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceDrive, operation, status, duration)
	c.logger.Debug("drive request",
		logging.Service(instrumentation.ServiceDrive),
		logging.Operation(operation),
		logging.Status(status),
		logging.KeyDuration, duration,
		logging.Err(err))
}

// escapeQuery escapes a value for use inside a single-quoted Drive query literal.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// convertToFileInfo converts a Drive API File to our FileInfo type
func convertToFileInfo(f *drive.File) *FileInfo {
	fileInfo := &FileInfo{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Size:           f.Size,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		Parents:        f.Parents,
	}

	if f.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			fileInfo.CreatedTime = t
		}
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			fileInfo.ModifiedTime = t
		}
	}

	return fileInfo
}

func newUploadResult(f *drive.File, replaced bool) *UploadResult {
	return &UploadResult{
		ID:             f.Id,
		Name:           f.Name,
		Size:           f.Size,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		Replaced:       replaced,
	}
}
