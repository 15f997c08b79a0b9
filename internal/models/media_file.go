package models

// MediaFile is one playable file on disk together with the stream metadata
// the probe step discovered. Codec and container fields hold canonical
// lowercase names ("h264", "aac", "mkv"); empty means not yet probed.
type MediaFile struct {
	BaseModel

	// ContentID links the file to a library item (movie, episode). A
	// content item can have multiple files in different qualities.
	ContentID ULID `gorm:"index" json:"content_id"`

	Path string `gorm:"not null" json:"path"`
	Size int64  `json:"size"`

	Container    string `json:"container"`
	VideoCodec   string `json:"video_codec"`
	VideoProfile string `json:"video_profile,omitempty"`
	VideoLevel   int    `json:"video_level,omitempty"`
	AudioCodec   string `json:"audio_codec"`

	Width      int    `json:"width"`
	Height     int    `json:"height"`
	DurationMs int64  `json:"duration_ms"`
	Bitrate    int64  `json:"bitrate"`
	HDRFormat  string `json:"hdr_format,omitempty"`
}

// TableName returns the database table name.
func (MediaFile) TableName() string {
	return "media_files"
}

// Probed reports whether stream metadata has been populated for this file.
func (m *MediaFile) Probed() bool {
	return m.Container != "" && m.VideoCodec != ""
}
