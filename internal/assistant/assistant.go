// Package assistant drafts event descriptions with a chat completion model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

var tracer = otel.Tracer("github.com/ovaphlow/pitchfork/service-community-go/internal/assistant")

var errNoCompletion = errors.New("model returned no completion")

type Config struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	Model   string `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	BaseURL string `env:"OPENAI_BASE_URL"`
}

func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse assistant env: %w", err)
	}
	return cfg, nil
}

// Service asks the model for one completion per prompt. Requests are never retried.
type Service struct {
	client openai.Client
	model  string
	logger *zap.SugaredLogger
}

func NewService(cfg Config, logger *zap.SugaredLogger) *Service {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Service{client: openai.NewClient(opts...), model: cfg.Model, logger: logger}
}

func buildPrompt(prompt string) string {
	return fmt.Sprintf(`Provide a concise description for the following: "%s"`, prompt)
}

// Describe returns a short description of prompt.
func (s *Service) Describe(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "assistant.Describe")
	defer span.End()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", apperror.Field("prompt", "No prompt provided")
	}
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(buildPrompt(prompt)),
		},
	})
	if err != nil {
		s.logger.Errorw("generate description failed", "model", s.model, "err", err)
		return "", fmt.Errorf("generate description: %w", err)
	}
	if len(resp.Choices) == 0 {
		s.logger.Errorw("generate description failed", "model", s.model, "err", errNoCompletion)
		return "", errNoCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// Handler serves GET /events/describe/{prompt}.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Describe(w http.ResponseWriter, r *http.Request) {
	description, err := h.svc.Describe(r.Context(), r.PathValue("prompt"))
	if err != nil {
		utilities.WriteJSON(w, apperror.Status(err), apperror.Body(err, "Error generating description"))
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"description": description})
}
