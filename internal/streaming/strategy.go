package streaming

import "strings"

// Strategy names a playback delivery method, ordered from cheapest to most
// expensive. Clients send these back verbatim on /stream requests.
type Strategy string

// Delivery strategies.
const (
	// StrategyDirectPlay serves the source file bytes unchanged.
	StrategyDirectPlay Strategy = "DIRECT_PLAY"
	// StrategyRemux repackages to fragmented MP4 with stream copy.
	StrategyRemux Strategy = "REMUX"
	// StrategyHLSCopy segments to HLS with stream copy.
	StrategyHLSCopy Strategy = "HLS_COPY"
	// StrategyTranscode re-encodes to H.264/AAC HLS.
	StrategyTranscode Strategy = "TRANSCODE"
)

// ParseStrategy parses a client-supplied strategy string. Unknown values
// return false; the router then falls back to auto-detection rather than
// failing the request.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(strings.ToUpper(strings.TrimSpace(s))) {
	case StrategyDirectPlay:
		return StrategyDirectPlay, true
	case StrategyRemux:
		return StrategyRemux, true
	case StrategyHLSCopy:
		return StrategyHLSCopy, true
	case StrategyTranscode:
		return StrategyTranscode, true
	}
	return "", false
}

// Classification is the verdict on how a source file can reach a browser.
type Classification string

// Classifications, from best to worst case.
const (
	// ClassificationDirectPlay: codecs and container playable as-is.
	ClassificationDirectPlay Classification = "direct_play"
	// ClassificationNeedsRemux: codecs fine, container needs repackaging.
	ClassificationNeedsRemux Classification = "needs_remux"
	// ClassificationNeedsTranscoding: at least one stream needs re-encoding.
	ClassificationNeedsTranscoding Classification = "needs_transcoding"
)

// Candidate is one playback option offered to a client, in server
// preference order. Codec strings are RFC 6381.
type Candidate struct {
	Strategy   Strategy `json:"strategy"`
	Container  string   `json:"container"`
	VideoCodec string   `json:"video_codec"`
	AudioCodec string   `json:"audio_codec,omitempty"`
	MIMEType   string   `json:"mime_type"`
}
