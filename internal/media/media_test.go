package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.tmp")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLocalUploader_Upload(t *testing.T) {
	baseDir := t.TempDir()
	u := NewLocalUploader(baseDir, "/static/media", 1<<20)
	tmp := writeTemp(t, pngBytes)

	asset, err := u.Upload(context.Background(), tmp)
	require.NoError(t, err)

	assert.Equal(t, "image/png", asset.ContentType)
	assert.True(t, strings.HasPrefix(asset.URL, "/static/media/"))
	assert.True(t, strings.HasSuffix(asset.Key, ".png"))
	assert.FileExists(t, filepath.Join(baseDir, filepath.FromSlash(asset.Key)))
	assert.NoFileExists(t, tmp)
}

func TestLocalUploader_RejectsAndCleansUp(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		max     int64
		wantErr error
	}{
		{name: "empty", data: nil, wantErr: ErrEmptyFile},
		{name: "not an image", data: []byte("plain text body"), wantErr: ErrInvalidMimeType},
		{name: "too large", data: pngBytes, max: 8, wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewLocalUploader(t.TempDir(), "", tt.max)
			tmp := writeTemp(t, tt.data)

			asset, err := u.Upload(context.Background(), tmp)
			assert.Nil(t, asset)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoFileExists(t, tmp)
		})
	}
}

func TestLocalUploader_MissingFile(t *testing.T) {
	u := NewLocalUploader(t.TempDir(), "", 0)
	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

type fakePutter struct {
	mu   sync.Mutex
	keys []string
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.keys = append(f.keys, *in.Key)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Uploader_Upload(t *testing.T) {
	putter := &fakePutter{}
	u := newS3Uploader(putter, S3Options{Bucket: "media", Folder: "avatars", PublicBaseURL: "https://cdn.test/"})
	tmp := writeTemp(t, pngBytes)

	asset, err := u.Upload(context.Background(), tmp)
	require.NoError(t, err)

	require.Len(t, putter.keys, 1)
	assert.True(t, strings.HasPrefix(putter.keys[0], "avatars/"))
	assert.Equal(t, "https://cdn.test/"+putter.keys[0], asset.URL)
	assert.Equal(t, pngBytes, putter.body)
	assert.NoFileExists(t, tmp)
}

func TestS3Uploader_PutFailureRemovesTemp(t *testing.T) {
	u := newS3Uploader(&fakePutter{err: errors.New("bucket unavailable")}, S3Options{Bucket: "media", PublicBaseURL: "https://cdn.test"})
	tmp := writeTemp(t, pngBytes)

	asset, err := u.Upload(context.Background(), tmp)
	assert.Nil(t, asset)
	assert.ErrorContains(t, err, "bucket unavailable")
	assert.NoFileExists(t, tmp)
}

func TestNewS3Uploader_PathStyleEndpoint(t *testing.T) {
	var gotPath, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := NewS3Uploader(context.Background(), S3Options{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		Bucket:          "media",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Folder:          "accounthub",
		PublicBaseURL:   "https://cdn.test",
	})
	require.NoError(t, err)

	asset, err := u.Upload(context.Background(), writeTemp(t, pngBytes))
	require.NoError(t, err)

	assert.Equal(t, "/media/"+asset.Key, gotPath)
	assert.Equal(t, "image/png", gotType)
	assert.True(t, strings.HasPrefix(asset.Key, "accounthub/"))
}
