package media

// SlotKind tells whether a segment has audio, and which kind.
type SlotKind string

const (
	SlotNone    SlotKind = ""
	SlotReal    SlotKind = "real"
	SlotSilence SlotKind = "silence"
)

// AudioSlot is the audio attached to a segment. The zero value means no
// audio has been generated yet. A silence slot is an explicit "render this
// window as silence" marker and carries no data.
type AudioSlot struct {
	Kind SlotKind `json:"kind,omitempty"`
	Data []byte   `json:"-"`
}

// Real wraps encoded audio bytes.
func Real(data []byte) AudioSlot {
	return AudioSlot{Kind: SlotReal, Data: data}
}

// Silence returns the silence marker slot.
func Silence() AudioSlot {
	return AudioSlot{Kind: SlotSilence}
}

func (s AudioSlot) IsReal() bool    { return s.Kind == SlotReal }
func (s AudioSlot) IsSilence() bool { return s.Kind == SlotSilence }
func (s AudioSlot) IsNone() bool    { return s.Kind == SlotNone }

// Bytes returns the encoded audio of a real slot and nil otherwise.
func (s AudioSlot) Bytes() []byte {
	if s.Kind != SlotReal {
		return nil
	}
	return s.Data
}
