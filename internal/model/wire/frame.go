package wire

import "encoding/json"

// FrameKind tags the two framing kinds a connection can carry.
type FrameKind int

const (
	// FrameControl is a JSON control message received on a text frame.
	FrameControl FrameKind = iota
	// FrameAudio is a raw audio chunk received on a binary frame.
	FrameAudio
)

// Frame is the tagged variant handed to the session engine. The transport
// adapter decides the kind before any session logic runs, so the engine
// dispatches over a closed set instead of sniffing payloads.
//
// For FrameControl, Control is nil when the text frame did not parse as
// JSON; the engine decides whether that is fatal based on its state.
type Frame struct {
	Kind    FrameKind
	Control *Inbound
	Audio   []byte
}

// DecodeControl parses a text frame into a control frame. A parse failure
// yields a control frame with a nil Control rather than an error.
func DecodeControl(data []byte) Frame {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Frame{Kind: FrameControl}
	}
	return Frame{Kind: FrameControl, Control: &msg}
}

// AudioFrame wraps a binary chunk.
func AudioFrame(data []byte) Frame {
	return Frame{Kind: FrameAudio, Audio: data}
}
