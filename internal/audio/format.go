package audio

import (
	"strconv"
	"strings"
)

// MimeForFormat maps an ElevenLabs style output format ("mp3_44100_128",
// "pcm_16000", "wav") to a content type.
func MimeForFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	switch {
	case strings.Contains(f, "wav"):
		return "audio/wav"
	case strings.Contains(f, "mp3"):
		return "audio/mpeg"
	case strings.Contains(f, "ogg") || strings.Contains(f, "opus"):
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// PCMSampleRate extracts the sample rate from a "pcm_<rate>" format.
func PCMSampleRate(format string) (int, bool) {
	f := strings.ToLower(strings.TrimSpace(format))
	idx := strings.Index(f, "pcm_")
	if idx < 0 {
		return 0, false
	}
	rest := f[idx+len("pcm_"):]
	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n == 0 {
		return 16000, true
	}
	sr, err := strconv.Atoi(rest[:n])
	if err != nil || sr <= 0 {
		return 16000, true
	}
	return sr, true
}

// IsMP3 reports whether the format names an MP3 encoding.
func IsMP3(format string) bool {
	return strings.Contains(strings.ToLower(format), "mp3")
}
