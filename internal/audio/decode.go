package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"cadenza/internal/metadata"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrAudioUnavailable  = errors.New("audio output is not available in this build")
)

// decode opens path and returns a seekable PCM stream for it. The caller
// owns the returned streamer and must close it.
func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	format, err := metadata.DetectFormat(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var (
		streamer beep.StreamSeekCloser
		bf       beep.Format
	)
	switch format {
	case metadata.FormatMP3:
		streamer, bf, err = mp3.Decode(f)
	case metadata.FormatWAV:
		streamer, bf, err = wav.Decode(f)
	case metadata.FormatFLAC:
		streamer, bf, err = flac.Decode(f)
	case metadata.FormatOGG:
		streamer, bf, err = vorbis.Decode(f)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", format, err)
	}
	return streamer, bf, nil
}
