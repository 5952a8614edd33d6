package metadata

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"cadenza/pkg/models"
)

// Format is an audio container the player can decode.
type Format string

const (
	FormatUnknown Format = ""
	FormatMP3     Format = "mp3"
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatOGG     Format = "ogg"
)

// DefaultSupportedFormats lists the extensions picked up by library scans.
var DefaultSupportedFormats = []string{".mp3", ".wav", ".flac", ".ogg"}

// UnknownArtist is used for tracks whose artist is not known.
const UnknownArtist = "Unknown"

// FormatFromExtension maps a file extension to a Format.
func FormatFromExtension(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return FormatMP3
	case ".wav", ".wave":
		return FormatWAV
	case ".flac":
		return FormatFLAC
	case ".ogg", ".oga":
		return FormatOGG
	}
	return FormatUnknown
}

// DetectFormat sniffs the container from the file header, falling back to
// the extension when the header is not recognised (RIFF/WAVE has no tag
// block to identify).
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	_, fileType, err := tag.Identify(f)
	if err == nil {
		switch fileType {
		case tag.MP3:
			return FormatMP3, nil
		case tag.FLAC:
			return FormatFLAC, nil
		case tag.OGG:
			return FormatOGG, nil
		}
	}
	return FormatFromExtension(path), nil
}

// IsAudioFile checks if a file has one of the supported extensions
func IsAudioFile(path string, supported []string) bool {
	if len(supported) == 0 {
		supported = DefaultSupportedFormats
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range supported {
		if ext == strings.ToLower(s) {
			return true
		}
	}
	return false
}

// TrackFromPath builds a library track from a file name: the stem becomes
// the title and the artist is unknown.
func TrackFromPath(path string) models.Track {
	base := filepath.Base(path)
	return models.Track{
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		Artist:   UnknownArtist,
		FilePath: path,
	}
}
