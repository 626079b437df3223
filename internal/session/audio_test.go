package session

import (
	"bytes"
	"errors"
	"testing"
)

func TestAudioAssemblyConcatenatesInOrder(t *testing.T) {
	var assembly AudioAssembly

	chunks := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, chunk := range chunks {
		if err := assembly.Append(chunk); err != nil {
			t.Fatalf("Append err: %v", err)
		}
	}

	if assembly.Len() != len("onetwothree") {
		t.Fatalf("unexpected length: %d", assembly.Len())
	}

	got := assembly.Flush()
	if !bytes.Equal(got, []byte("onetwothree")) {
		t.Fatalf("unexpected concatenation: %q", got)
	}
	if assembly.Len() != 0 {
		t.Fatalf("assembly not empty after flush: %d", assembly.Len())
	}
}

func TestAudioAssemblyFlushEmpty(t *testing.T) {
	var assembly AudioAssembly
	if got := assembly.Flush(); got != nil {
		t.Fatalf("expected nil flush, got %d bytes", len(got))
	}
}

func TestAudioAssemblyLimit(t *testing.T) {
	var assembly AudioAssembly

	if err := assembly.Append(make([]byte, MaxAudioBytes)); err != nil {
		t.Fatalf("Append at limit err: %v", err)
	}
	if err := assembly.Append([]byte{0}); !errors.Is(err, ErrAudioLimitExceeded) {
		t.Fatalf("expected ErrAudioLimitExceeded, got %v", err)
	}
	if !errors.Is(ErrAudioLimitExceeded, ErrProtocolViolation) {
		t.Fatal("overflow must count as a protocol violation")
	}
}

func TestAudioAssemblyReusableAfterFlush(t *testing.T) {
	var assembly AudioAssembly

	_ = assembly.Append([]byte("first"))
	first := assembly.Flush()

	_ = assembly.Append([]byte("second"))
	second := assembly.Flush()

	if string(first) != "first" || string(second) != "second" {
		t.Fatalf("flushed data aliased: %q, %q", first, second)
	}
}
