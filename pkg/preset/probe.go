package preset

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// Fallbacks for media that cannot be probed
const (
	FallbackSampleRate = 44100
	FallbackFrames     = int64(FallbackSampleRate) // one second
)

// SourceInfo is the metadata the serializer needs from a sample file
type SourceInfo struct {
	SampleRate int
	Frames     int64
}

// ProbeWAV reads a WAV file's header and reports its sample rate and
// total length in frames. No sample data is decoded.
func ProbeWAV(path string) (SourceInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return SourceInfo{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return SourceInfo{}, fmt.Errorf("invalid wav file: %s", path)
	}

	bytesPerFrame := int64(dec.NumChans) * int64(dec.BitDepth/8)
	if bytesPerFrame == 0 {
		return SourceInfo{}, fmt.Errorf("wav header reports zero frame size: %s", path)
	}

	return SourceInfo{
		SampleRate: int(dec.SampleRate),
		Frames:     dec.PCMLen() / bytesPerFrame,
	}, nil
}
