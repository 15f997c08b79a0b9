package middleware

import (
	"net/http"
	"strings"
)

// mediaPathPrefixes are routes serving media bytes. Compressing them
// wastes CPU (the payloads are already compressed codecs) and breaks byte
// range semantics, since Content-Range offsets refer to the uncompressed
// representation.
var mediaPathPrefixes = []string{
	"/stream/",
	"/hls/",
	"/download/",
}

// SkipCompressionForMedia wraps a compression middleware so media routes
// bypass it while JSON API responses stay compressed.
func SkipCompressionForMedia(compressionHandler func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		compressedHandler := compressionHandler(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range mediaPathPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			compressedHandler.ServeHTTP(w, r)
		})
	}
}
