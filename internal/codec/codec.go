// Package codec provides a unified codec registry for video and audio codecs.
// It consolidates codec naming, browser capability information, and RFC 6381
// codec string construction used for playback decisions and MIME types.
package codec

import "strings"

// Video represents a video codec.
type Video string

// Video codec constants.
const (
	VideoH264 Video = "h264" // H.264/AVC
	VideoHEVC Video = "hevc" // H.265/HEVC
	VideoVP8  Video = "vp8"  // VP8
	VideoVP9  Video = "vp9"  // VP9
	VideoAV1  Video = "av1"  // AV1
	// Legacy codecs kept for detection; never encoding targets.
	VideoMPEG2  Video = "mpeg2"
	VideoMPEG4  Video = "mpeg4"
	VideoVC1    Video = "vc1"
	VideoTheora Video = "theora"
)

// Audio represents an audio codec.
type Audio string

// Audio codec constants.
const (
	AudioAAC    Audio = "aac"    // AAC
	AudioMP3    Audio = "mp3"    // MP3
	AudioAC3    Audio = "ac3"    // Dolby Digital (AC-3)
	AudioEAC3   Audio = "eac3"   // Dolby Digital Plus (E-AC-3)
	AudioOpus   Audio = "opus"   // Opus
	AudioVorbis Audio = "vorbis" // Vorbis
	AudioFLAC   Audio = "flac"   // FLAC
	AudioDTS    Audio = "dts"    // DTS
	AudioTrueHD Audio = "truehd" // Dolby TrueHD
	AudioPCM    Audio = "pcm"    // PCM
)

// Container represents a media container format.
type Container string

// Container format constants.
const (
	ContainerMP4  Container = "mp4"
	ContainerWebM Container = "webm"
	ContainerMKV  Container = "mkv"
	ContainerMOV  Container = "mov"
	ContainerM4V  Container = "m4v"
	ContainerAVI  Container = "avi"
	ContainerTS   Container = "ts"
	ContainerHLS  Container = "hls"
)

// String returns the string representation of the video codec.
func (v Video) String() string {
	return string(v)
}

// String returns the string representation of the audio codec.
func (a Audio) String() string {
	return string(a)
}

// String returns the string representation of the container.
func (c Container) String() string {
	return string(c)
}

// videoInfo contains metadata about a video codec.
type videoInfo struct {
	// Canonical name (h264, hevc, etc.)
	Name Video
	// All known aliases and encoder names that map to this codec
	Aliases []string
	// Whether mainstream browsers decode this codec natively
	BrowserPlayable bool
}

// audioInfo contains metadata about an audio codec.
type audioInfo struct {
	Name            Audio
	Aliases         []string
	BrowserPlayable bool
}

// videoRegistry holds all known video codecs keyed by canonical name.
var videoRegistry = map[Video]videoInfo{
	VideoH264: {
		Name:            VideoH264,
		Aliases:         []string{"h264", "avc", "avc1", "libx264", "x264", "h264_nvenc", "h264_qsv", "h264_vaapi"},
		BrowserPlayable: true,
	},
	VideoHEVC: {
		Name:            VideoHEVC,
		Aliases:         []string{"hevc", "h265", "hev1", "hvc1", "libx265", "x265", "hevc_nvenc", "hevc_qsv", "hevc_vaapi"},
		BrowserPlayable: false,
	},
	VideoVP8: {
		Name:            VideoVP8,
		Aliases:         []string{"vp8", "libvpx"},
		BrowserPlayable: true,
	},
	VideoVP9: {
		Name:            VideoVP9,
		Aliases:         []string{"vp9", "vp09", "libvpx-vp9"},
		BrowserPlayable: true,
	},
	VideoAV1: {
		Name:            VideoAV1,
		Aliases:         []string{"av1", "av01", "libaom-av1", "libsvtav1"},
		BrowserPlayable: true,
	},
	VideoMPEG2: {
		Name:    VideoMPEG2,
		Aliases: []string{"mpeg2", "mpeg2video"},
	},
	VideoMPEG4: {
		Name:    VideoMPEG4,
		Aliases: []string{"mpeg4", "divx", "xvid"},
	},
	VideoVC1: {
		Name:    VideoVC1,
		Aliases: []string{"vc1", "vc-1", "wmv3"},
	},
	VideoTheora: {
		Name:    VideoTheora,
		Aliases: []string{"theora", "libtheora"},
	},
}

// audioRegistry holds all known audio codecs keyed by canonical name.
var audioRegistry = map[Audio]audioInfo{
	AudioAAC: {
		Name:            AudioAAC,
		Aliases:         []string{"aac", "aac_latm", "libfdk_aac"},
		BrowserPlayable: true,
	},
	AudioMP3: {
		Name:            AudioMP3,
		Aliases:         []string{"mp3", "libmp3lame", "mp3float"},
		BrowserPlayable: true,
	},
	AudioAC3: {
		Name:    AudioAC3,
		Aliases: []string{"ac3", "ac-3"},
	},
	AudioEAC3: {
		Name:    AudioEAC3,
		Aliases: []string{"eac3", "ec-3", "ec3"},
	},
	AudioOpus: {
		Name:            AudioOpus,
		Aliases:         []string{"opus", "libopus"},
		BrowserPlayable: true,
	},
	AudioVorbis: {
		Name:            AudioVorbis,
		Aliases:         []string{"vorbis", "libvorbis"},
		BrowserPlayable: true,
	},
	AudioFLAC: {
		Name:            AudioFLAC,
		Aliases:         []string{"flac"},
		BrowserPlayable: true,
	},
	AudioDTS: {
		Name:    AudioDTS,
		Aliases: []string{"dts", "dca"},
	},
	AudioTrueHD: {
		Name:    AudioTrueHD,
		Aliases: []string{"truehd"},
	},
	AudioPCM: {
		Name:    AudioPCM,
		Aliases: []string{"pcm", "pcm_s16le", "pcm_s24le", "pcm_s32le"},
	},
}

// Alias lookup indexes built at init.
var (
	videoAliasIndex map[string]Video
	audioAliasIndex map[string]Audio
)

func init() {
	videoAliasIndex = make(map[string]Video)
	for codec, info := range videoRegistry {
		for _, alias := range info.Aliases {
			videoAliasIndex[strings.ToLower(alias)] = codec
		}
	}

	audioAliasIndex = make(map[string]Audio)
	for codec, info := range audioRegistry {
		for _, alias := range info.Aliases {
			audioAliasIndex[strings.ToLower(alias)] = codec
		}
	}
}

// ParseVideo parses a string (codec name, alias, or encoder) to a Video codec.
// Returns the canonical codec and whether the parse was successful.
func ParseVideo(s string) (Video, bool) {
	if s == "" {
		return "", false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	codec, ok := videoAliasIndex[s]
	return codec, ok
}

// ParseAudio parses a string (codec name, alias, or encoder) to an Audio codec.
// Returns the canonical codec and whether the parse was successful.
func ParseAudio(s string) (Audio, bool) {
	if s == "" {
		return "", false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	codec, ok := audioAliasIndex[s]
	return codec, ok
}

// NormalizeVideo normalizes a video codec/encoder name to its canonical form.
// Returns the input unchanged if not recognized.
func NormalizeVideo(name string) string {
	if codec, ok := ParseVideo(name); ok {
		return string(codec)
	}
	return name
}

// NormalizeAudio normalizes an audio codec/encoder name to its canonical form.
// Returns the input unchanged if not recognized.
func NormalizeAudio(name string) string {
	if codec, ok := ParseAudio(name); ok {
		return string(codec)
	}
	return name
}

// NormalizeContainer maps an ffprobe format_name to a canonical container.
// ffprobe reports comma-separated demuxer lists like
// "mov,mp4,m4a,3gp,3g2,mj2"; the file extension disambiguates those.
func NormalizeContainer(formatName, path string) Container {
	lower := strings.ToLower(formatName)

	switch {
	case strings.Contains(lower, "matroska"):
		// matroska,webm share a demuxer
		if strings.HasSuffix(strings.ToLower(path), ".webm") {
			return ContainerWebM
		}
		return ContainerMKV
	case strings.Contains(lower, "webm"):
		return ContainerWebM
	case strings.Contains(lower, "mp4"), strings.Contains(lower, "mov"):
		p := strings.ToLower(path)
		switch {
		case strings.HasSuffix(p, ".mov"):
			return ContainerMOV
		case strings.HasSuffix(p, ".m4v"):
			return ContainerM4V
		default:
			return ContainerMP4
		}
	case strings.Contains(lower, "avi"):
		return ContainerAVI
	case strings.Contains(lower, "mpegts"):
		return ContainerTS
	}

	return Container(lower)
}

// BrowserPlayable reports whether mainstream browsers decode this video
// codec natively.
func (v Video) BrowserPlayable() bool {
	return videoRegistry[v].BrowserPlayable
}

// BrowserPlayable reports whether mainstream browsers decode this audio
// codec natively.
func (a Audio) BrowserPlayable() bool {
	return audioRegistry[a].BrowserPlayable
}

// StreamableContainer reports whether browsers can play this container
// directly over HTTP without repackaging.
func (c Container) Streamable() bool {
	switch c {
	case ContainerMP4, ContainerWebM:
		return true
	}
	return false
}

// Remuxable reports whether the container can be repackaged to MP4 with
// stream copy, assuming the codecs themselves are playable.
func (c Container) Remuxable() bool {
	switch c {
	case ContainerMKV, ContainerMOV, ContainerM4V:
		return true
	}
	return false
}
