// Package httprange implements HTTP byte-range parsing and single-range
// file serving. It differs from http.ServeContent in two ways that matter
// for media delivery: it serves files that are still growing (a transcode
// in progress) against an explicit size snapshot, and it exposes range
// parsing separately so handlers can decorate responses before writing.
package httprange

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// ErrNotSatisfiable indicates the requested range starts at or beyond the
// current end of the resource. Handlers translate this to 416 with a
// "bytes */<size>" Content-Range so clients learn the real size.
var ErrNotSatisfiable = errors.New("requested range not satisfiable")

// Range is a single resolved byte range.
type Range struct {
	Start  int64
	Length int64
}

// End returns the inclusive end offset of the range.
func (r Range) End() int64 {
	return r.Start + r.Length - 1
}

// ContentRange formats the Content-Range header value for a 206 response.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End(), size)
}

// Parse parses a Range request header against the given resource size.
//
// Returns (nil, nil) when the header is absent or syntactically invalid;
// per RFC 9110 an unparseable Range header is ignored and the full
// resource served with 200. Returns ErrNotSatisfiable when the range is
// well-formed but lies beyond the resource. Only single ranges are
// supported; multipart ranges are ignored like invalid ones.
//
// Supported forms: "bytes=N-", "bytes=N-M", "bytes=-N" (suffix).
func Parse(header string, size int64) (*Range, error) {
	if header == "" {
		return nil, nil
	}

	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return nil, nil
	}
	spec := strings.TrimSpace(header[len(prefix):])
	if spec == "" || strings.Contains(spec, ",") {
		return nil, nil
	}

	dash := strings.Index(spec, "-")
	if dash < 0 {
		return nil, nil
	}
	startStr := strings.TrimSpace(spec[:dash])
	endStr := strings.TrimSpace(spec[dash+1:])

	// Suffix range: last N bytes.
	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, nil
		}
		if size == 0 {
			return nil, ErrNotSatisfiable
		}
		if n > size {
			n = size
		}
		return &Range{Start: size - n, Length: n}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, nil
	}
	if start >= size {
		return nil, ErrNotSatisfiable
	}

	// Open-ended range: from start to current end.
	if endStr == "" {
		return &Range{Start: start, Length: size - start}, nil
	}

	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return nil, nil
	}
	if end < start {
		return nil, nil
	}
	if end >= size {
		end = size - 1
	}
	return &Range{Start: start, Length: end - start + 1}, nil
}

// WriteNotSatisfiable writes a 416 response advertising the current size.
func WriteNotSatisfiable(w http.ResponseWriter, size int64) {
	w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
	w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
}

// ServeFile serves the file at path honoring a single Range header. The
// size parameter is the byte count to serve against; for still-growing
// files pass the current on-disk size so open-ended ranges terminate at
// the snapshot instead of racing the writer.
//
// Sets Accept-Ranges, Content-Type, Content-Length and, for partial
// responses, Content-Range. HEAD requests get headers only.
func ServeFile(w http.ResponseWriter, r *http.Request, path string, size int64, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	w.Header().Set("Accept-Ranges", "bytes")
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	rng, err := Parse(r.Header.Get("Range"), size)
	if errors.Is(err, ErrNotSatisfiable) {
		WriteNotSatisfiable(w, size)
		return nil
	}
	if err != nil {
		return err
	}

	if rng == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		_, err = io.CopyN(w, f, size)
		return ignoreClientGone(err)
	}

	w.Header().Set("Content-Length", strconv.FormatInt(rng.Length, 10))
	w.Header().Set("Content-Range", rng.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}

	if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to %d: %w", rng.Start, err)
	}
	_, err = io.CopyN(w, f, rng.Length)
	return ignoreClientGone(err)
}

// ignoreClientGone drops errors caused by the client disconnecting
// mid-transfer, which is routine for video players seeking around.
func ignoreClientGone(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset") {
		return nil
	}
	return err
}
