package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"google.golang.org/genai"

	"github.com/youarebest/tgbot/internal/config"
	"github.com/youarebest/tgbot/internal/database"
)

// Generator produces the model's answer to prompt, given the earlier turns of the thread.
type Generator interface {
	Generate(ctx context.Context, history []*database.ConversationTurn, prompt string) (string, error)
}

// Identity is how the bot introduces itself to the model.
type Identity struct {
	FirstName string
	Username  string
}

// contentModel is the part of genai.Models the generator calls.
type contentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiGenerator struct {
	models        contentModel
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	maxRetries    int
	retryDelay    time.Duration
}

// NewGemini creates a Generator backed by the Gemini API.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, id Identity, log *slog.Logger) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	instruction := fmt.Sprintf(identityHeader, id.FirstName, id.Username, id.Username) + cfg.SystemInstruction
	contentConfig := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
	}

	logger := log.With("component", "gemini")
	logger.Info("Gemini client initialized", "model", cfg.ModelName)
	return &geminiGenerator{
		models:        client.Models,
		log:           logger,
		contentConfig: contentConfig,
		modelName:     cfg.ModelName,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
	}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, history []*database.ConversationTurn, prompt string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == database.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	g.log.DebugContext(ctx, "Generating reply", "history", len(history))
	resp, err := g.generateWithRetries(ctx, contents)
	if err != nil {
		return "", err
	}
	return extractText(resp)
}

// generateWithRetries retries 500 and 503 API errors up to maxRetries times.
func (g *geminiGenerator) generateWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	resp, err := retry.DoWithData(
		func() (*genai.GenerateContentResponse, error) {
			return g.models.GenerateContent(ctx, g.modelName, contents, g.contentConfig)
		},
		retry.Context(ctx),
		retry.Attempts(uint(g.maxRetries)+1),
		retry.Delay(g.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			g.log.WarnContext(ctx, "Retrying Gemini API call", "attempt", n+1, "delay", g.retryDelay, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return resp, nil
}

// retryable reports whether err is a transient server-side Gemini error. The
// client returns APIError by value; the pointer form is matched as well.
func retryable(err error) bool {
	var code int
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	default:
		return false
	}
	return code == 500 || code == 503
}

// extractText returns the reply text, failing on blocked prompts and empty candidates.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini returned no response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != genai.BlockedReasonUnspecified {
		reason := string(fb.BlockReason)
		if fb.BlockReasonMessage != "" {
			reason = fb.BlockReasonMessage
		}
		return "", fmt.Errorf("prompt blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified &&
			resp.Candidates[0].FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("gemini returned no content, finish reason: %s", resp.Candidates[0].FinishReason)
		}
		return "", errors.New("gemini returned empty content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}
