package httprange

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		size    int64
		want    *Range
		wantErr error
	}{
		{"no header", "", 1000, nil, nil},
		{"open ended", "bytes=200-", 1000, &Range{Start: 200, Length: 800}, nil},
		{"bounded", "bytes=0-499", 1000, &Range{Start: 0, Length: 500}, nil},
		{"bounded mid", "bytes=500-999", 1000, &Range{Start: 500, Length: 500}, nil},
		{"end clamped to size", "bytes=900-5000", 1000, &Range{Start: 900, Length: 100}, nil},
		{"suffix", "bytes=-100", 1000, &Range{Start: 900, Length: 100}, nil},
		{"suffix larger than file", "bytes=-5000", 1000, &Range{Start: 0, Length: 1000}, nil},
		{"start at size", "bytes=1000-", 1000, nil, ErrNotSatisfiable},
		{"start beyond size", "bytes=1000000-", 500, nil, ErrNotSatisfiable},
		{"not bytes unit", "items=0-10", 1000, nil, nil},
		{"multipart ignored", "bytes=0-10,20-30", 1000, nil, nil},
		{"garbage ignored", "bytes=abc-def", 1000, nil, nil},
		{"inverted ignored", "bytes=500-200", 1000, nil, nil},
		{"negative start ignored", "bytes=--5-10", 1000, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.header, tt.size)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeContentRange(t *testing.T) {
	r := Range{Start: 200, Length: 300}
	assert.Equal(t, int64(499), r.End())
	assert.Equal(t, "bytes 200-499/1000", r.ContentRange(1000))
}

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "media.mp4")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestServeFile_FullContent(t *testing.T) {
	content := []byte("0123456789abcdef")
	path := writeTempFile(t, content)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	rec := httptest.NewRecorder()

	err := ServeFile(rec, req, path, int64(len(content)), "video/mp4")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "16", rec.Header().Get("Content-Length"))
	assert.Equal(t, content, rec.Body.Bytes())
}

func TestServeFile_PartialContent(t *testing.T) {
	content := []byte("0123456789abcdef")
	path := writeTempFile(t, content)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=4-7")
	rec := httptest.NewRecorder()

	err := ServeFile(rec, req, path, int64(len(content)), "video/mp4")
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 4-7/16", rec.Header().Get("Content-Range"))
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
	assert.Equal(t, []byte("4567"), rec.Body.Bytes())
}

func TestServeFile_NotSatisfiable(t *testing.T) {
	content := make([]byte, 500)
	path := writeTempFile(t, content)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=1000000-")
	rec := httptest.NewRecorder()

	err := ServeFile(rec, req, path, 500, "video/mp4")
	require.NoError(t, err)

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	assert.Equal(t, "bytes */500", rec.Header().Get("Content-Range"))
}

func TestServeFile_GrowingFileSnapshot(t *testing.T) {
	// The file on disk is larger than the size snapshot; only the
	// snapshot portion must be served for an open-ended range.
	content := []byte("0123456789abcdef")
	path := writeTempFile(t, content)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=4-")
	rec := httptest.NewRecorder()

	err := ServeFile(rec, req, path, 8, "video/mp4")
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 4-7/8", rec.Header().Get("Content-Range"))
	assert.Equal(t, []byte("4567"), rec.Body.Bytes())
}

func TestServeFile_Head(t *testing.T) {
	content := []byte("0123456789")
	path := writeTempFile(t, content)

	req := httptest.NewRequest(http.MethodHead, "/stream", nil)
	rec := httptest.NewRecorder()

	err := ServeFile(rec, req, path, int64(len(content)), "video/mp4")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.Bytes())
}
