package codec

import (
	"fmt"
	"strings"
)

// RFC 6381 codec parameter strings, as used in MIME "codecs=" attributes
// and HLS CODECS playlist attributes. When the profile/level of the source
// stream is unknown we fall back to a conservative default that the target
// decoder set accepts.

// Default RFC 6381 strings per codec.
const (
	rfc6381H264Default = "avc1.640028"      // High@L4.0
	rfc6381HEVCDefault = "hvc1.1.6.L123.B0" // Main@L4.1
	rfc6381VP9Default  = "vp09.00.10.08"    // Profile 0, L1, 8-bit
	rfc6381AV1Default  = "av01.0.08M.08"    // Main, L4.0, 8-bit
)

// RFC6381Video returns the RFC 6381 codec string for a video codec. The
// profile and level come from probing when available; zero values select
// the defaults above.
func RFC6381Video(v Video, profile string, level int) string {
	switch v {
	case VideoH264:
		profileHex, ok := h264ProfileHex(profile)
		if !ok || level <= 0 {
			return rfc6381H264Default
		}
		return fmt.Sprintf("avc1.%s%02x", profileHex, level)
	case VideoHEVC:
		if profile == "" || level <= 0 {
			return rfc6381HEVCDefault
		}
		return fmt.Sprintf("hvc1.%s.6.L%d.B0", hevcProfileIDC(profile), level)
	case VideoVP8:
		return "vp8"
	case VideoVP9:
		return rfc6381VP9Default
	case VideoAV1:
		return rfc6381AV1Default
	}
	return string(v)
}

// RFC6381Audio returns the RFC 6381 codec string for an audio codec.
func RFC6381Audio(a Audio) string {
	switch a {
	case AudioAAC:
		return "mp4a.40.2" // AAC-LC
	case AudioMP3:
		return "mp4a.40.34"
	case AudioAC3:
		return "ac-3"
	case AudioEAC3:
		return "ec-3"
	case AudioOpus:
		return "opus"
	case AudioVorbis:
		return "vorbis"
	case AudioFLAC:
		return "flac"
	}
	return string(a)
}

// h264ProfileHex maps an ffprobe H.264 profile name to the two-byte
// profile_idc + constraint flags hex used in avc1 strings.
func h264ProfileHex(profile string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "baseline", "constrained baseline":
		return "4240", true
	case "main":
		return "4d40", true
	case "high":
		return "6400", true
	case "high 10":
		return "6e00", true
	}
	return "", false
}

// hevcProfileIDC maps an ffprobe HEVC profile name to the general_profile_idc
// component of hvc1 strings.
func hevcProfileIDC(profile string) string {
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "main 10":
		return "2"
	default: // main
		return "1"
	}
}

// MIMEType composes a full MIME type with a codecs parameter for the given
// container and RFC 6381 codec strings. An empty audio string is omitted
// (video-only files).
func MIMEType(c Container, videoRFC, audioRFC string) string {
	var base string
	switch c {
	case ContainerWebM:
		base = "video/webm"
	case ContainerHLS:
		// HLS playlists carry codec info inside the playlist itself.
		return "application/vnd.apple.mpegurl"
	default:
		base = "video/mp4"
	}

	codecs := videoRFC
	if audioRFC != "" {
		codecs += ", " + audioRFC
	}
	if codecs == "" {
		return base
	}
	return fmt.Sprintf("%s; codecs=%q", base, codecs)
}
