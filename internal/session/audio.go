package session

import "bytes"

// MaxAudioBytes caps the aggregate size of one in-flight utterance.
const MaxAudioBytes = 20 << 20 // 20 MiB

// AudioAssembly accumulates the binary chunks of one utterance until the
// client signals end of stream. Owned by a single session, no locking.
type AudioAssembly struct {
	buf bytes.Buffer
}

// Append adds one chunk in arrival order. It fails with
// ErrAudioLimitExceeded once the running total would cross MaxAudioBytes.
func (a *AudioAssembly) Append(chunk []byte) error {
	if a.buf.Len()+len(chunk) > MaxAudioBytes {
		return ErrAudioLimitExceeded
	}
	a.buf.Write(chunk)
	return nil
}

// Len reports the accumulated byte count.
func (a *AudioAssembly) Len() int {
	return a.buf.Len()
}

// Flush returns the concatenation of all chunks and resets the assembly
// to empty. The returned slice is a copy the caller may hold onto.
func (a *AudioAssembly) Flush() []byte {
	if a.buf.Len() == 0 {
		return nil
	}
	audio := make([]byte, a.buf.Len())
	copy(audio, a.buf.Bytes())
	a.buf.Reset()
	return audio
}
