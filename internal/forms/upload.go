package forms

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/api"
)

// Upload form messages.
const (
	DefaultPrompt     = "Drop your CSV or JSON file here, or click to select"
	MsgWrongFileType  = "Please select a CSV or JSON file"
	MsgNoFile         = "Please select a file first"
	MsgUploadFailed   = "Error uploading file"
	msgUploadComplete = "File uploaded successfully"
)

var (
	// ErrNoFile is returned by Upload when nothing is selected.
	ErrNoFile = errors.New("no file selected")

	// ErrUnsupportedFile is returned for a file that is neither CSV nor JSON.
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// File is a file picked or dropped by the user.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Accepts reports whether f is a CSV or JSON file, by MIME type or name.
func Accepts(f File) bool {
	switch f.MIMEType {
	case "text/csv", "application/json":
		return true
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".csv", ".json":
		return true
	}
	return false
}

// Uploader sends a file to the backend. *api.Client satisfies it.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*api.MessageResponse, error)
}

// Loader tracks long-running operations. *notify.Loading satisfies it.
type Loader interface {
	Begin()
	End()
}

// UploadState is what the upload area shows.
type UploadState struct {
	Prompt        string `json:"prompt"`
	ButtonVisible bool   `json:"buttonVisible"`
	DragOver      bool   `json:"dragOver"`
	Selected      string `json:"selected,omitempty"`
}

// Upload is the file upload area: selection, drag feedback and submission.
type Upload struct {
	client   Uploader
	notifier Notifier
	loading  Loader
	reload   ReloadFunc
	logger   *zap.Logger

	mu       sync.Mutex
	selected *File
	dragOver bool
}

// NewUpload creates the upload area. A nil logger disables logging.
func NewUpload(client Uploader, notifier Notifier, loading Loader, reload ReloadFunc, logger *zap.Logger) *Upload {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Upload{client: client, notifier: notifier, loading: loading, reload: reload, logger: logger}
}

// DragOver marks a drag hovering over the area.
func (u *Upload) DragOver() {
	u.mu.Lock()
	u.dragOver = true
	u.mu.Unlock()
}

// DragLeave clears the hover mark.
func (u *Upload) DragLeave() {
	u.mu.Lock()
	u.dragOver = false
	u.mu.Unlock()
}

// Drop selects the first dropped file. Dropping nothing is a no-op.
func (u *Upload) Drop(files []File) error {
	u.DragLeave()
	if len(files) == 0 {
		return nil
	}
	return u.Select(files[0])
}

// Select makes f the file to upload. A file that is not CSV or JSON is
// rejected and the current selection kept.
func (u *Upload) Select(f File) error {
	if !Accepts(f) {
		u.notifier.Error(MsgWrongFileType)
		return ErrUnsupportedFile
	}
	u.mu.Lock()
	u.selected = &f
	u.mu.Unlock()
	return nil
}

// State returns what the upload area currently shows.
func (u *Upload) State() UploadState {
	u.mu.Lock()
	defer u.mu.Unlock()
	st := UploadState{Prompt: DefaultPrompt, DragOver: u.dragOver}
	if u.selected != nil {
		st.Prompt = "Selected: " + u.selected.Name
		st.ButtonVisible = true
		st.Selected = u.selected.Name
	}
	return st
}

// Upload sends the selected file. On success the selection is cleared and
// the graph reloaded; on failure it is kept for another attempt.
func (u *Upload) Upload(ctx context.Context) error {
	u.mu.Lock()
	f := u.selected
	u.mu.Unlock()
	if f == nil {
		u.notifier.Error(MsgNoFile)
		return ErrNoFile
	}

	u.loading.Begin()
	defer u.loading.End()

	resp, err := u.client.Upload(ctx, f.Name, bytes.NewReader(f.Data))
	if err != nil {
		u.logger.Debug("upload failed", zap.String("file", f.Name), zap.Error(err))
		u.notifier.Error(api.UserMessage(err, MsgUploadFailed))
		return err
	}

	msg := msgUploadComplete
	if resp != nil && resp.Message != "" {
		msg = resp.Message
	}
	u.notifier.Success(msg)

	u.mu.Lock()
	if u.selected == f {
		u.selected = nil
	}
	u.mu.Unlock()

	if u.reload != nil {
		if err := u.reload(ctx); err != nil {
			u.logger.Debug("reload after upload", zap.Error(err))
		}
	}
	return nil
}
