package wire

import "encoding/json"

// Inbound control message types.
const (
	TypeInitSession = "INIT_SESSION"
	TypeTextMessage = "TEXT_MESSAGE"
	TypeInitVoice   = "INIT_VOICE"
	TypeEndVoice    = "END_VOICE"
	TypeEndOfStream = "END_OF_STREAM"
)

// Outbound event types.
const (
	EventAIResponse             = "AI_RESPONSE"
	EventAIResponsePendingAudio = "AI_RESPONSE_PENDING_AUDIO"
	EventAIIsTyping             = "AI_IS_TYPING"
	EventUserTranscript         = "USER_TRANSCRIPT"
)

// WidgetConfig carries the per-session configuration sent by the embedding
// page during the handshake.
type WidgetConfig struct {
	BotName          string `json:"bot_name,omitempty"`
	CompanyName      string `json:"company_name,omitempty"`
	WelcomeMessage   string `json:"welcome_message,omitempty"`
	ProactiveMessage string `json:"proactive_message,omitempty"`
	BehaviorPrompt   string `json:"behavior_prompt,omitempty"`
	VoiceID          string `json:"voice_id,omitempty"`
	Language         string `json:"language,omitempty"`
}

// PageContext describes the page the widget is embedded in.
type PageContext struct {
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Inbound is the shape shared by all inbound control messages. Fields
// beyond Type are populated depending on the message type.
type Inbound struct {
	Type             string          `json:"type"`
	CredentialBundle json.RawMessage `json:"credentialBundle,omitempty"`
	Config           WidgetConfig    `json:"config,omitempty"`
	PageContext      *PageContext    `json:"pageContext,omitempty"`
	IsProactive      bool            `json:"isProactive,omitempty"`
	Text             string          `json:"text,omitempty"`
}

// Outbound is a structured event sent to the client on a text frame.
// Synthesized audio replies travel as raw binary frames instead.
type Outbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}
