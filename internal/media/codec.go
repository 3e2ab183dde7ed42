package media

import "context"

// Codec converts between encoded audio bytes and PCM clips.
type Codec interface {
	// Decode returns the audio as mono PCM at its native sample rate.
	Decode(ctx context.Context, data []byte) (*Clip, error)
	// Encode renders the clip in the codec's container format.
	Encode(ctx context.Context, clip *Clip) ([]byte, error)
	// Format is the file extension of encoded output, e.g. "wav" or "mp3".
	Format() string
}
