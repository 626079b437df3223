// Package analysis derives a structured post-session summary from a chat
// transcript. Failures never propagate: callers always receive an Outcome,
// possibly one marked Failed.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Outcome is the result of analyzing one transcript. Failed marks the
// well-defined fallback record substituted when the collaborator errored
// or returned something unparsable; downstream code must not mistake it
// for real data.
type Outcome struct {
	Sentiment        string   `json:"sentiment"`
	Subject          string   `json:"subject"`
	ResolutionStatus string   `json:"resolution_status"`
	Tags             []string `json:"tags,omitempty"`
	Failed           bool     `json:"analysis_failed,omitempty"`
}

// FailedOutcome is the fallback record written when analysis fails.
func FailedOutcome() Outcome {
	return Outcome{
		Sentiment:        "unknown",
		Subject:          "analysis-failed",
		ResolutionStatus: "unknown",
		Failed:           true,
	}
}

// Service 使用大模型对会话转录进行结构化分析。
type Service struct {
	enabled    bool
	classifier compose.Runnable[map[string]any, *schema.Message]
}

// NewService 创建分析服务。chatModel 可重用现有的大模型实例；为 nil 时
// 服务保持禁用，Analyze 始终返回失败标记的回退结果。
func NewService(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	svc := &Service{enabled: chatModel != nil}
	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(analysisSystemPrompt),
		schema.UserMessage(analysisUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile analysis chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Enabled 返回分析服务是否启用。
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Analyze summarizes the transcript. Any failure yields the fallback
// outcome instead of an error.
func (s *Service) Analyze(ctx context.Context, transcript string) Outcome {
	if !s.Enabled() {
		return FailedOutcome()
	}
	if strings.TrimSpace(transcript) == "" {
		return FailedOutcome()
	}

	msg, err := s.classifier.Invoke(ctx, map[string]any{"transcript": transcript})
	if err != nil {
		log.Printf("[analysis] classifier invoke failed, using fallback: %v", err)
		return FailedOutcome()
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return FailedOutcome()
	}

	outcome, err := parseClassifierOutput(msg.Content)
	if err != nil {
		log.Printf("[analysis] classifier output parse failed, using fallback: %v", err)
		return FailedOutcome()
	}
	return outcome
}

type classifierPayload struct {
	Sentiment        string   `json:"sentiment"`
	Subject          string   `json:"subject"`
	ResolutionStatus string   `json:"resolution_status"`
	Tags             []string `json:"tags"`
}

// parseClassifierOutput 解析大模型返回的 JSON。
func parseClassifierOutput(content string) (Outcome, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return Outcome{}, fmt.Errorf("missing json object")
	}

	var payload classifierPayload
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return Outcome{}, err
	}

	subject := strings.TrimSpace(payload.Subject)
	if subject == "" {
		return Outcome{}, fmt.Errorf("missing subject")
	}

	sentiment := strings.ToLower(strings.TrimSpace(payload.Sentiment))
	if sentiment == "" {
		sentiment = "neutral"
	}

	resolution := strings.ToLower(strings.TrimSpace(payload.ResolutionStatus))
	if resolution == "" {
		resolution = "unknown"
	}

	tags := make([]string, 0, len(payload.Tags))
	for _, tag := range payload.Tags {
		if trimmedTag := strings.TrimSpace(tag); trimmedTag != "" {
			tags = append(tags, trimmedTag)
		}
	}

	return Outcome{
		Sentiment:        sentiment,
		Subject:          subject,
		ResolutionStatus: resolution,
		Tags:             tags,
	}, nil
}

const analysisSystemPrompt = "You are an analyst reviewing a customer support chat transcript. " +
	"Summarize the conversation and respond with exactly one JSON object, no extra text, with these fields: " +
	"sentiment (one of positive/neutral/negative), subject (a short phrase naming what the conversation was about), " +
	"resolution_status (one of resolved/unresolved/escalated/unknown), tags (an array of at most five short lowercase keywords)."

const analysisUserPrompt = "Transcript:\n{transcript}\n\nRespond with the JSON object only."
