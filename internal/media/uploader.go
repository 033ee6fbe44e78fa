// Package media moves uploaded files from the local temp directory to the
// media host and returns their public URL.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrInvalidMimeType = errors.New("file type is not allowed")
)

// AllowedMimeTypes are the image types accepted for avatars and covers.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type Asset struct {
	URL         string
	Key         string
	ContentType string
	Size        int64
}

// Uploader transfers the file at localPath and always removes it, whether
// the transfer succeeded or not.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*Asset, error)
}

type sourceFile struct {
	*os.File
	size     int64
	mimeType string
}

// openSource opens localPath and sniffs its content type.
func openSource(localPath string, maxBytes int64) (*sourceFile, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() == 0 {
		_ = f.Close()
		return nil, ErrEmptyFile
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		_ = f.Close()
		return nil, ErrFileTooLarge
	}

	// Detect MIME type from first 512 bytes
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	mimeType := strings.Split(http.DetectContentType(buf[:n]), ";")[0]
	if !AllowedMimeTypes[mimeType] {
		_ = f.Close()
		return nil, ErrInvalidMimeType
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}

	return &sourceFile{File: f, size: info.Size(), mimeType: mimeType}, nil
}

// objectKey builds prefix/YYYY/MM/DD/<uuid><ext>.
func objectKey(prefix, mimeType string, now time.Time) string {
	key := fmt.Sprintf("%d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), uuid.New().String(), mimeToExt(mimeType))
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

func mimeToExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func removeTemp(localPath string) {
	_ = os.Remove(filepath.Clean(localPath))
}
