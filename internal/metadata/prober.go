package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"

	"cadenza/internal/cache"
)

const (
	// fallbackBitrate is assumed when no MP3 frame can be decoded.
	fallbackBitrate = 192000

	// durationTTL bounds how long a probed duration is trusted.
	durationTTL = 6 * time.Hour
)

// Prober computes track durations and caches them per file version.
type Prober struct {
	logger *logrus.Logger
	cache  *cache.Memory[string, cachedDuration]
}

type cachedDuration struct {
	size    int64
	modTime time.Time
	seconds float64
}

// NewProber creates a duration prober
func NewProber(logger *logrus.Logger) *Prober {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Prober{
		logger: logger,
		cache:  cache.NewMemory[string, cachedDuration](durationTTL, cache.DefaultCleanupInterval),
	}
}

// Duration returns the length of the audio file in seconds.
func (p *Prober) Duration(path string) (float64, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	c, ok := p.cache.Get(path)
	if ok && c.size == st.Size() && c.modTime.Equal(st.ModTime()) {
		return c.seconds, nil
	}

	format, err := DetectFormat(path)
	if err != nil {
		return 0, err
	}

	startTime := time.Now()
	var secs float64
	switch format {
	case FormatMP3:
		secs, err = durationMP3(path, st.Size())
	case FormatFLAC:
		secs, err = durationFLAC(path)
	case FormatWAV:
		secs, err = durationWAV(path)
	case FormatOGG:
		secs, err = durationOGG(path)
	default:
		err = fmt.Errorf("unsupported format: %s", path)
	}
	if err != nil {
		return 0, err
	}

	p.logger.WithFields(logrus.Fields{
		"filePath":       path,
		"duration":       secs,
		"processingTime": time.Since(startTime),
	}).Debug("Probed duration")

	p.cache.Set(path, cachedDuration{size: st.Size(), modTime: st.ModTime(), seconds: secs})
	return secs, nil
}

// Forget drops a cached duration.
func (p *Prober) Forget(path string) {
	p.cache.Delete(path)
}

// Close stops the cache sweeper.
func (p *Prober) Close() {
	p.cache.Close()
}

// MP3 duration by summing frame durations; a size based estimate is used
// only when no frame decodes at all.
func durationMP3(path string, size int64) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return float64(size*8) / fallbackBitrate, nil
			}
			break
		}
		total += fr.Duration()
		frames++
	}
	return total.Seconds(), nil
}

// FLAC duration from the STREAMINFO block
func durationFLAC(path string) (float64, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, fmt.Errorf("flac stream missing sample info")
	}
	return float64(si.NSamples) / float64(si.SampleRate), nil
}

// WAV duration from the fmt and data chunk headers
func durationWAV(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("wav header: %w", err)
	}
	return d.Seconds(), nil
}

// OGG Vorbis duration from the decoded stream length
func durationOGG(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	streamer, format, err := vorbis.Decode(f)
	if err != nil {
		f.Close()
		return 0, err
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()).Seconds(), nil
}
