package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"accounthub/internal/pkg/metrics"
)

const (
	DriverLocal = "local"

	defaultBaseDir    = "./uploads"
	defaultStaticBase = "/static/media"
)

// LocalUploader stores files on disk under baseDir and serves them from
// staticBase. Used for development and tests.
type LocalUploader struct {
	baseDir    string
	staticBase string
	maxBytes   int64
	now        func() time.Time
}

func NewLocalUploader(baseDir, staticBase string, maxBytes int64) *LocalUploader {
	if baseDir == "" {
		baseDir = defaultBaseDir
	}
	if staticBase == "" {
		staticBase = defaultStaticBase
	}
	return &LocalUploader{baseDir: baseDir, staticBase: staticBase, maxBytes: maxBytes, now: time.Now}
}

func (u *LocalUploader) BaseDir() string { return u.baseDir }

func (u *LocalUploader) Upload(ctx context.Context, localPath string) (asset *Asset, err error) {
	defer removeTemp(localPath)
	defer func() { metrics.RecordUpload(DriverLocal, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := openSource(localPath, u.maxBytes)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	key := objectKey("", src.mimeType, u.now())
	absPath := filepath.Join(u.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	dst, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &Asset{
		URL:         u.staticBase + "/" + key,
		Key:         key,
		ContentType: src.mimeType,
		Size:        src.size,
	}, nil
}
