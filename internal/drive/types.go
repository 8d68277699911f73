package drive

import "time"

// FileInfo represents metadata about a file or folder in Google Drive
type FileInfo struct {
	// ID is the unique identifier for the file
	ID string `json:"id"`

	// Name is the name of the file
	Name string `json:"name"`

	// MimeType is the MIME type of the file
	MimeType string `json:"mimeType"`

	// Size is the size of the file in bytes (not populated for folders)
	Size int64 `json:"size,omitempty"`

	// CreatedTime is when the file was created
	CreatedTime time.Time `json:"createdTime"`

	// ModifiedTime is when the file was last modified
	ModifiedTime time.Time `json:"modifiedTime"`

	// WebViewLink is a link for opening the file in a relevant Google editor or viewer
	WebViewLink string `json:"webViewLink,omitempty"`

	// WebContentLink is a link for downloading the file content (not available for folders)
	WebContentLink string `json:"webContentLink,omitempty"`

	// Parents are the IDs of the parent folders
	Parents []string `json:"parents,omitempty"`
}

// IsFolder reports whether the entry is a Drive folder.
func (f *FileInfo) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// UploadResult describes the remote file after an upload or replace.
type UploadResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`

	// WebViewLink opens the file in the Drive viewer
	WebViewLink string `json:"webViewLink,omitempty"`

	// WebContentLink downloads the file content directly
	WebContentLink string `json:"webContentLink,omitempty"`

	// Replaced is true when an existing file's content was overwritten
	Replaced bool `json:"replaced"`
}

// Link returns the best link to hand to a user: the view link when Drive
// returned one, otherwise a link built from the file ID.
func (r *UploadResult) Link() string {
	if r.WebViewLink != "" {
		return r.WebViewLink
	}
	if r.ID == "" {
		return ""
	}
	return "https://drive.google.com/file/d/" + r.ID + "/view"
}
