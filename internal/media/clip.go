// Package media provides PCM audio handling, codecs and timeline assembly.
package media

import (
	"math"
	"time"
)

// Clip is mono 16-bit PCM audio.
type Clip struct {
	SampleRate int
	Samples    []int16
}

// NewSilence returns a clip of digital silence lasting ms milliseconds.
func NewSilence(sampleRate int, ms int64) *Clip {
	return &Clip{SampleRate: sampleRate, Samples: make([]int16, samplesFor(sampleRate, ms))}
}

// samplesFor converts a millisecond position to a sample offset.
func samplesFor(sampleRate int, ms int64) int {
	if ms <= 0 {
		return 0
	}
	return int(ms * int64(sampleRate) / 1000)
}

// Millis returns the clip length in whole milliseconds.
func (c *Clip) Millis() int64 {
	if c == nil || c.SampleRate == 0 {
		return 0
	}
	return int64(len(c.Samples)) * 1000 / int64(c.SampleRate)
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Slice returns the samples between two millisecond offsets, clamped to the
// clip. The returned clip shares storage with c.
func (c *Clip) Slice(fromMs, toMs int64) *Clip {
	from := min(samplesFor(c.SampleRate, fromMs), len(c.Samples))
	to := min(samplesFor(c.SampleRate, toMs), len(c.Samples))
	if to < from {
		to = from
	}
	return &Clip{SampleRate: c.SampleRate, Samples: c.Samples[from:to]}
}

// Append adds the samples of other, which must share the sample rate.
func (c *Clip) Append(other *Clip) {
	if other == nil {
		return
	}
	c.Samples = append(c.Samples, other.Samples...)
}

// AppendSilence adds ms milliseconds of silence.
func (c *Clip) AppendSilence(ms int64) {
	c.Samples = append(c.Samples, make([]int16, samplesFor(c.SampleRate, ms))...)
}

// FitTo truncates or zero-pads the clip to exactly ms milliseconds.
// It reports whether the clip was truncated or padded.
func (c *Clip) FitTo(ms int64) (truncated, padded bool) {
	n := samplesFor(c.SampleRate, ms)
	switch {
	case len(c.Samples) > n:
		c.Samples = c.Samples[:n]
		return true, false
	case len(c.Samples) < n:
		c.Samples = append(c.Samples, make([]int16, n-len(c.Samples))...)
		return false, true
	}
	return false, false
}

// DBFS returns the RMS level of the samples in [fromMs, toMs) relative to
// full scale. Digital silence yields -Inf.
func (c *Clip) DBFS(fromMs, toMs int64) float64 {
	part := c.Slice(fromMs, toMs).Samples
	if len(part) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range part {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(part)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/32768)
}

// Resample converts the clip to rate using linear interpolation.
func (c *Clip) Resample(rate int) *Clip {
	if c.SampleRate == rate || c.SampleRate == 0 || len(c.Samples) == 0 {
		return &Clip{SampleRate: rate, Samples: c.Samples}
	}
	n := int(int64(len(c.Samples)) * int64(rate) / int64(c.SampleRate))
	out := make([]int16, n)
	step := float64(c.SampleRate) / float64(rate)
	last := len(c.Samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = c.Samples[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(c.Samples[j])*(1-frac) + float64(c.Samples[j+1])*frac)
	}
	return &Clip{SampleRate: rate, Samples: out}
}
