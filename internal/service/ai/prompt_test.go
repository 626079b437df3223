package ai

import (
	"strings"
	"testing"

	"github.com/zhouzirui/chat-relay/backend/internal/model/wire"
)

func TestBuildSystemPromptIncludesConfig(t *testing.T) {
	cfg := wire.WidgetConfig{
		BotName:        "Ava",
		CompanyName:    "Acme",
		BehaviorPrompt: "Always answer in English.",
	}
	page := &wire.PageContext{URL: "https://acme.test/pricing", Title: "Pricing"}

	prompt := BuildSystemPrompt(cfg, page)

	for _, want := range []string{"Ava", "Acme", "Always answer in English.", "https://acme.test/pricing", "Pricing"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildSystemPromptDefaults(t *testing.T) {
	prompt := BuildSystemPrompt(wire.WidgetConfig{}, nil)

	if !strings.Contains(prompt, "the assistant") {
		t.Fatalf("expected default bot name in prompt:\n%s", prompt)
	}
	if strings.Contains(prompt, "currently on this page") {
		t.Fatalf("unexpected page section without page context:\n%s", prompt)
	}
}

func TestWelcomeMessageSelection(t *testing.T) {
	cfg := wire.WidgetConfig{
		WelcomeMessage:   "Welcome to Acme!",
		ProactiveMessage: "Need help?",
	}

	if got := WelcomeMessage(cfg, false); got != "Welcome to Acme!" {
		t.Fatalf("unexpected welcome: %q", got)
	}
	if got := WelcomeMessage(cfg, true); got != "Need help?" {
		t.Fatalf("unexpected proactive welcome: %q", got)
	}
	if got := WelcomeMessage(wire.WidgetConfig{}, false); got != DefaultWelcomeMessage {
		t.Fatalf("unexpected default welcome: %q", got)
	}
	if got := WelcomeMessage(wire.WidgetConfig{}, true); got != DefaultProactiveMessage {
		t.Fatalf("unexpected default proactive welcome: %q", got)
	}
}
