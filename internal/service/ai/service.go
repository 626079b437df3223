package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
	"github.com/zhouzirui/chat-relay/backend/internal/model/convo"
)

// Service generates assistant replies over full conversation histories.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
}

// NewService creates the completion service from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &Service{chatModel: chatModel, cfg: cfg}, nil
}

// GetChatModel 返回底层的聊天模型
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

// Complete requests one assistant reply for the provided ordered turns.
// The turn list includes the leading system turn.
func (s *Service) Complete(ctx context.Context, turns []convo.Turn) (string, error) {
	messages := buildMessages(turns)
	if len(messages) == 0 {
		return "", fmt.Errorf("empty conversation")
	}

	response, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", fmt.Errorf("model returned empty completion")
	}

	log.Printf("[ai] generated completion turns=%d length=%d", len(turns), len(text))
	return text, nil
}

func buildMessages(turns []convo.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case convo.RoleSystem:
			messages = append(messages, schema.SystemMessage(turn.Content))
		case convo.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case convo.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return messages
}
