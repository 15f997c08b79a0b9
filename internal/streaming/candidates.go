package streaming

import (
	"github.com/vodarr/vodarr/internal/codec"
	"github.com/vodarr/vodarr/internal/models"
)

// Transcode fallback target: H.264 High + AAC-LC in MP4/HLS plays on
// every supported client.
const (
	fallbackVideoRFC = "avc1.640028"
	fallbackAudioRFC = "mp4a.40.2"
)

// BuildCandidates returns the ordered playback options for a classified
// file. The list always ends with the guaranteed TRANSCODE fallback, so a
// client that rejects every preferred option still has a path.
func BuildCandidates(class Classification, file *models.MediaFile) []Candidate {
	video, _ := codec.ParseVideo(file.VideoCodec)
	audio, _ := codec.ParseAudio(file.AudioCodec)

	videoRFC := codec.RFC6381Video(video, file.VideoProfile, file.VideoLevel)
	audioRFC := ""
	if file.AudioCodec != "" {
		audioRFC = codec.RFC6381Audio(audio)
	}

	var candidates []Candidate

	switch class {
	case ClassificationDirectPlay:
		container := codec.Container(file.Container)
		candidates = append(candidates, Candidate{
			Strategy:   StrategyDirectPlay,
			Container:  file.Container,
			VideoCodec: videoRFC,
			AudioCodec: audioRFC,
			MIMEType:   codec.MIMEType(container, videoRFC, audioRFC),
		})

	case ClassificationNeedsRemux:
		candidates = append(candidates,
			Candidate{
				Strategy:   StrategyRemux,
				Container:  string(codec.ContainerMP4),
				VideoCodec: videoRFC,
				AudioCodec: audioRFC,
				MIMEType:   codec.MIMEType(codec.ContainerMP4, videoRFC, audioRFC),
			},
			Candidate{
				Strategy:   StrategyHLSCopy,
				Container:  string(codec.ContainerHLS),
				VideoCodec: videoRFC,
				AudioCodec: audioRFC,
				MIMEType:   codec.MIMEType(codec.ContainerHLS, videoRFC, audioRFC),
			},
		)

	case ClassificationNeedsTranscoding:
		// A codec pair some client decodes natively (HEVC in Safari)
		// still gets a stream-copy HLS option before the re-encode.
		if hlsCopyViable(video, audio, file.AudioCodec == "") {
			candidates = append(candidates, Candidate{
				Strategy:   StrategyHLSCopy,
				Container:  string(codec.ContainerHLS),
				VideoCodec: videoRFC,
				AudioCodec: audioRFC,
				MIMEType:   codec.MIMEType(codec.ContainerHLS, videoRFC, audioRFC),
			})
		}
	}

	// Guaranteed fallback, always last.
	candidates = append(candidates, Candidate{
		Strategy:   StrategyTranscode,
		Container:  string(codec.ContainerHLS),
		VideoCodec: fallbackVideoRFC,
		AudioCodec: fallbackAudioRFC,
		MIMEType:   codec.MIMEType(codec.ContainerHLS, fallbackVideoRFC, fallbackAudioRFC),
	})

	return candidates
}

// hlsCopyViable reports whether both streams can survive stream copy into
// HLS and be decoded by at least one mainstream client.
func hlsCopyViable(video codec.Video, audio codec.Audio, noAudio bool) bool {
	switch video {
	case codec.VideoH264, codec.VideoHEVC:
	default:
		return false
	}
	if noAudio {
		return true
	}
	switch audio {
	case codec.AudioAAC, codec.AudioMP3, codec.AudioAC3, codec.AudioEAC3:
		return true
	}
	return false
}
