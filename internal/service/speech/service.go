// Package speech adapts the OpenAI audio endpoints to the narrow
// transcription and synthesis contracts the session engine consumes.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
)

// Service 语音服务核心业务逻辑
type Service struct {
	client *openai.Client
	cfg    config.SpeechConfig
}

// NewService 创建语音服务实例
func NewService(cfg config.SpeechConfig) *Service {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Service{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// Transcribe 语音转文字。audio 为一段完整话语的原始字节。
func (s *Service) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	req := openai.AudioRequest{
		Model:    s.cfg.ASRModel,
		Reader:   bytes.NewReader(audio),
		FilePath: "utterance.webm",
		Language: whisperLanguage(language),
	}

	resp, err := s.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	log.Printf("[speech] transcribed bytes=%d chars=%d", len(audio), len(resp.Text))
	return resp.Text, nil
}

// Synthesize 文字转语音，返回合成音频的原始字节。
func (s *Service) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.TTSModel),
		Input:          text,
		Voice:          s.speechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}

	resp, err := s.client.CreateSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	log.Printf("[speech] synthesized chars=%d bytes=%d", len(text), len(audio))
	return audio, nil
}

func (s *Service) speechVoice(voice string) openai.SpeechVoice {
	if trimmed := strings.TrimSpace(voice); trimmed != "" {
		return openai.SpeechVoice(trimmed)
	}
	return openai.SpeechVoice(s.cfg.DefaultVoice)
}

// whisperLanguage reduces a BCP-47 tag like "en-US" to the ISO-639-1 code
// Whisper expects. Unknown or empty hints are omitted entirely.
func whisperLanguage(language string) string {
	trimmed := strings.TrimSpace(strings.ToLower(language))
	if trimmed == "" {
		return ""
	}
	if idx := strings.IndexAny(trimmed, "-_"); idx > 0 {
		trimmed = trimmed[:idx]
	}
	if len(trimmed) != 2 {
		return ""
	}
	return trimmed
}
