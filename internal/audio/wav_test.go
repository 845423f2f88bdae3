package audio

import (
	"testing"
	"time"
)

func TestEncodeThenParseWAVHeader(t *testing.T) {
	pcm := make([]byte, 32000) // one second at 16 kHz mono PCM16
	wav, err := EncodeWAVPCM16LE(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	if len(wav) != 44+len(pcm) {
		t.Fatalf("len(wav) = %d, want %d", len(wav), 44+len(pcm))
	}

	info, err := ParseWAVHeader(wav)
	if err != nil {
		t.Fatalf("ParseWAVHeader() error = %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.BitsPerSample != 16 {
		t.Fatalf("unexpected header: %+v", info)
	}
	if got := info.Duration(); got != time.Second {
		t.Fatalf("Duration() = %v, want 1s", got)
	}
}

func TestParseWAVHeaderClampsTruncatedData(t *testing.T) {
	wav, err := EncodeWAVPCM16LE(make([]byte, 32000), 16000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	info, err := ParseWAVHeader(wav[:44+16000])
	if err != nil {
		t.Fatalf("ParseWAVHeader() error = %v", err)
	}
	if got := info.Duration(); got != 500*time.Millisecond {
		t.Fatalf("Duration() = %v, want 500ms", got)
	}
}

func TestParseWAVHeaderRejectsGarbage(t *testing.T) {
	for _, b := range [][]byte{nil, []byte("ID3\x03garbage"), []byte("RIFF\x00\x00\x00\x00WAVE")} {
		if _, err := ParseWAVHeader(b); err == nil {
			t.Fatalf("ParseWAVHeader(%q) error = nil, want error", b)
		}
	}
}

func TestPCMSampleRate(t *testing.T) {
	cases := []struct {
		format string
		rate   int
		ok     bool
	}{
		{"pcm_16000", 16000, true},
		{"PCM_44100", 44100, true},
		{"pcm_", 16000, true},
		{"mp3_44100_128", 0, false},
	}
	for _, tc := range cases {
		rate, ok := PCMSampleRate(tc.format)
		if rate != tc.rate || ok != tc.ok {
			t.Fatalf("PCMSampleRate(%q) = %d,%v, want %d,%v", tc.format, rate, ok, tc.rate, tc.ok)
		}
	}
}

func TestMimeForFormat(t *testing.T) {
	if got := MimeForFormat("mp3_44100_128"); got != "audio/mpeg" {
		t.Fatalf("MimeForFormat(mp3) = %q", got)
	}
	if got := MimeForFormat("wav"); got != "audio/wav" {
		t.Fatalf("MimeForFormat(wav) = %q", got)
	}
	if got := MimeForFormat("mock_text_bytes"); got != "application/octet-stream" {
		t.Fatalf("MimeForFormat(mock) = %q", got)
	}
}
