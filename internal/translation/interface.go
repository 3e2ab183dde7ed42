// Package translation provides the translation contract and the MiniMax chat
// client used to translate, shorten and resize subtitle text.
package translation

import (
	"context"
	"math"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
)

// Failure classifies why a call produced no text.
type Failure string

const (
	FailureNone        Failure = ""
	FailureUnavailable Failure = "unavailable" // no credentials configured
	FailureTransport   Failure = "transport"
	FailureAPI         Failure = "api"
	FailureBadResponse Failure = "bad_response"
)

// Result is the outcome of a translation call.
type Result struct {
	Text    string
	TraceID string
	Failure Failure
	Err     error
}

// OK reports whether the call produced text.
func (r Result) OK() bool {
	return r.Failure == FailureNone && r.Text != ""
}

// ShortenRequest asks for a shorter rendering of an existing translation so
// that its speech fits TargetMs.
type ShortenRequest struct {
	Original  string // source-language text, may be empty
	Current   string // translation to shorten
	Language  string
	CurrentMs int64 // measured speech length of Current
	TargetMs  int64
	Glossary  Glossary
}

// Mode selects the direction of a manual length adjustment.
type Mode string

const (
	ModeShorten  Mode = "shorten"
	ModeLengthen Mode = "lengthen"
)

// Ratio returns the character ratio applied for the mode.
func (m Mode) Ratio() float64 {
	if m == ModeLengthen {
		return config.LengthenRatio
	}
	return config.ShortenRatio
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeShorten || m == ModeLengthen
}

// AdjustRequest asks for text about Mode.Ratio() times its current length.
type AdjustRequest struct {
	Original string
	Current  string
	Language string
	Mode     Mode
	Glossary Glossary
}

// Translator translates text and shortens existing translations.
type Translator interface {
	Translate(ctx context.Context, text, language string) Result
	Shorten(ctx context.Context, req ShortenRequest) Result
}

// Adjuster resizes text on request.
type Adjuster interface {
	Adjust(ctx context.Context, req AdjustRequest) Result
}

// TargetChars scales a character count by target/current duration, rounded
// to the nearest integer.
func TargetChars(currentChars int, currentMs, targetMs int64) int {
	if currentMs <= 0 {
		return currentChars
	}
	return int(math.Round(float64(currentChars) * float64(targetMs) / float64(currentMs)))
}
