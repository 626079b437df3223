package session

import (
	"errors"
	"fmt"
)

// ErrProtocolViolation covers malformed or unexpected first messages and
// audio-size overflow. A violation hard-terminates the connection: no
// reply, no persisted log entry.
var ErrProtocolViolation = errors.New("protocol violation")

// ErrAudioLimitExceeded is returned when accumulated audio for one
// utterance crosses the assembly ceiling.
var ErrAudioLimitExceeded = fmt.Errorf("%w: audio assembly limit exceeded", ErrProtocolViolation)
