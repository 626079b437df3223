package session

import (
	"testing"
	"time"

	"github.com/zhouzirui/chat-relay/backend/internal/model/convo"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Billing Question", "billing-question"},
		{"  Refund   for ORDER #42  ", "refund-for-order-42"},
		{"already-slugged", "already-slugged"},
		{"under_scores kept", "under_scores-kept"},
		{"---", "untitled"},
		{"", "untitled"},
		{"!!!", "untitled"},
		{"Ünïcode Päge", "ncode-pge"},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLogDocumentID(t *testing.T) {
	startedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	got := logDocumentID(startedAt, "Shipping Delay")
	want := "2025-03-14T09:26:53Z-shipping-delay"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// Non-UTC start times normalize to UTC.
	local := startedAt.In(time.FixedZone("CET", 3600))
	if got := logDocumentID(local, "Shipping Delay"); got != want {
		t.Fatalf("got %q for zoned time, want %q", got, want)
	}
}

func TestRenderTranscript(t *testing.T) {
	turns := []convo.Turn{
		{Role: convo.RoleSystem, Content: "You are Ava."},
		{Role: convo.RoleAssistant, Content: "Hi there!"},
		{Role: convo.RoleUser, Content: "  where is my order?  "},
		{Role: convo.RoleAssistant, Content: ""},
		{Role: convo.RoleAssistant, Content: "It ships tomorrow."},
	}

	got := renderTranscript(turns)
	want := "[assistant] Hi there!\n[user] where is my order?\n[assistant] It ships tomorrow."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderTranscriptEmpty(t *testing.T) {
	turns := []convo.Turn{
		{Role: convo.RoleSystem, Content: "You are Ava."},
	}
	if got := renderTranscript(turns); got != "" {
		t.Fatalf("expected empty transcript, got %q", got)
	}
	if got := renderTranscript(nil); got != "" {
		t.Fatalf("expected empty transcript for nil turns, got %q", got)
	}
}
