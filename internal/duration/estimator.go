// Package duration estimates how long a synthesized utterance will play.
//
// Estimation is an ordered chain of tiers. Each tier either produces a
// positive duration or declines; the first tier that answers wins. The final
// result is always clamped to a floor, so Estimate never fails.
package duration

import (
	"bytes"
	"math"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/ent0n29/duet/internal/audio"
)

const (
	// AssumedBytesPerSecond is the byte rate of 128 kbps MP3.
	AssumedBytesPerSecond = 16000
	// WordsPerSecond is the assumed synthetic speaking rate.
	WordsPerSecond = 2.5
	// MinDuration is the smallest estimate ever returned.
	MinDuration = time.Second

	maxDuration = 10 * time.Minute
)

// Method names the tier that produced an estimate.
type Method string

const (
	MethodContainer Method = "container"
	MethodBitrate   Method = "bitrate"
	MethodText      Method = "text"
	MethodFloor     Method = "floor"
)

// Input is everything known about one utterance.
type Input struct {
	Audio  []byte
	Format string
	Text   string
}

// Estimate is a pacing duration together with the tier that produced it.
type Estimate struct {
	Duration time.Duration
	Method   Method
}

// Tier is one step of the cascade.
type Tier struct {
	Method Method
	Fn     func(Input) (time.Duration, bool)
}

// Estimator runs the cascade.
type Estimator struct {
	tiers []Tier
	floor time.Duration
}

// New returns the default cascade: container metadata, then byte-rate, then
// word count.
func New() *Estimator {
	return NewWithTiers(MinDuration,
		Tier{Method: MethodContainer, Fn: FromContainer},
		Tier{Method: MethodBitrate, Fn: FromBitrate},
		Tier{Method: MethodText, Fn: FromText},
	)
}

// NewWithTiers builds a custom cascade.
func NewWithTiers(floor time.Duration, tiers ...Tier) *Estimator {
	if floor <= 0 {
		floor = MinDuration
	}
	return &Estimator{tiers: tiers, floor: floor}
}

// Estimate returns a finite duration of at least the floor.
func (e *Estimator) Estimate(in Input) Estimate {
	for _, tier := range e.tiers {
		d, ok := runTier(tier.Fn, in)
		if !ok || d <= 0 || d > maxDuration {
			continue
		}
		if d < e.floor {
			d = e.floor
		}
		return Estimate{Duration: d, Method: tier.Method}
	}
	return Estimate{Duration: e.floor, Method: MethodFloor}
}

func runTier(fn func(Input) (time.Duration, bool), in Input) (d time.Duration, ok bool) {
	defer func() {
		if recover() != nil {
			d, ok = 0, false
		}
	}()
	return fn(in)
}

// FromContainer reads the playback length from MP3 frames, a WAV header or a
// raw PCM format descriptor.
func FromContainer(in Input) (time.Duration, bool) {
	if len(in.Audio) == 0 {
		return 0, false
	}
	if info, err := audio.ParseWAVHeader(in.Audio); err == nil {
		return positive(info.Duration())
	}
	if rate, ok := audio.PCMSampleRate(in.Format); ok {
		// PCM16 mono.
		return seconds(float64(len(in.Audio)) / float64(rate*2))
	}
	if in.Format == "" || audio.IsMP3(in.Format) {
		return fromMP3(in.Audio)
	}
	return 0, false
}

func fromMP3(b []byte) (time.Duration, bool) {
	dec, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return 0, false
	}
	rate := dec.SampleRate()
	length := dec.Length()
	if rate <= 0 || length <= 0 {
		return 0, false
	}
	// Decoded output is always 16-bit stereo.
	frames := float64(length) / 4
	return seconds(frames / float64(rate))
}

// FromBitrate assumes a constant byte rate.
func FromBitrate(in Input) (time.Duration, bool) {
	if len(in.Audio) == 0 {
		return 0, false
	}
	return seconds(float64(len(in.Audio)) / AssumedBytesPerSecond)
}

// FromText assumes a fixed speaking rate.
func FromText(in Input) (time.Duration, bool) {
	words := len(strings.Fields(in.Text))
	if words == 0 {
		return 0, false
	}
	return seconds(float64(words) / WordsPerSecond)
}

func seconds(s float64) (time.Duration, bool) {
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		return 0, false
	}
	return positive(time.Duration(s * float64(time.Second)))
}

func positive(d time.Duration) (time.Duration, bool) {
	return d, d > 0
}
