package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 60 * time.Second

	// MaxSummaryTokens limits the length of a generated profile summary
	MaxSummaryTokens = 500

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements the ScoringProvider interface using OpenAI's API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// NewOpenAIProviderWithConfig creates a new OpenAI provider with custom configuration
func NewOpenAIProviderWithConfig(apiKey string, baseURL string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, baseURL, model, nil, false)
}

// ScoreBulkPriority scores a set of tasks and returns bucket recommendations
func (p *OpenAIProvider) ScoreBulkPriority(ctx context.Context, tasks []TaskForScoring, profileSummary string) (*BulkPriorityResult, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to score")
	}

	prompt, err := buildBulkPrompt(tasks, profileSummary)
	if err != nil {
		return nil, err
	}

	content, err := p.complete(ctx, "score_bulk_priority", bulkSystemMessage, prompt, true, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to score tasks: %w", err)
	}

	result, err := ParseBulkResult(content, tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scoring response: %w", err)
	}

	return result, nil
}

// ScoreTask scores a single task against the user's goals
func (p *OpenAIProvider) ScoreTask(ctx context.Context, task TaskForScoring, profileSummary string) (*PriorityScore, error) {
	prompt, err := buildSingleTaskPrompt(task, profileSummary)
	if err != nil {
		return nil, err
	}

	content, err := p.complete(ctx, "score_task", singleSystemMessage, prompt, true, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to score task: %w", err)
	}

	score, err := ParseSingleScore(content, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse score response: %w", err)
	}

	return score, nil
}

// SummarizeProfile condenses the user's profile into a scoring-ready summary
func (p *OpenAIProvider) SummarizeProfile(ctx context.Context, profile *models.UserProfile) (string, error) {
	if !profile.HasContent() {
		return "", fmt.Errorf("profile has no content to summarize")
	}

	prompt := buildProfilePrompt(profile)

	content, err := p.complete(ctx, "summarize_profile", profileSystemMessage, prompt, false, MaxSummaryTokens)
	if err != nil {
		return "", fmt.Errorf("failed to summarize profile: %w", err)
	}

	return strings.TrimSpace(content), nil
}

// TestConnection verifies the provider is reachable and configured
func (p *OpenAIProvider) TestConnection(ctx context.Context) error {
	_, err := p.complete(ctx, "test_connection",
		"You are a connectivity check. Respond with the single word OK.",
		"Reply with OK.", false, 5)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// complete sends one chat completion request and returns the response content
func (p *OpenAIProvider) complete(ctx context.Context, operation, system, user string, jsonMode bool, maxTokens int) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(user),
	}

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		// Temperature omitted - use model default to avoid "unsupported_value" errors
	}
	if jsonMode {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if maxTokens > 0 {
		req.MaxTokens = openai.Int(int64(maxTokens))
	}

	requestID := ExtractRequestID(ctx)
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(user)),
			zap.String("prompt_preview", SanitizePrompt(user, true)),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", operation),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", apiErr
		}
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

const bulkSystemMessage = "You are a prioritization assistant for a personal task workflow. " +
	"You score tasks against the user's stated goals and recommend which belong in the " +
	"NOW (1 task), NEXT (3 tasks), and LATER buckets. Respond with valid JSON only."

const singleSystemMessage = "You are a prioritization assistant for a personal task workflow. " +
	"You score a single task against the user's stated goals. Respond with valid JSON only."

const profileSystemMessage = "You are a helpful assistant that condenses a user's goals and " +
	"plans into a short prioritization brief. Focus on what should drive day-to-day task " +
	"priority decisions. Respond with plain text."

func buildBulkPrompt(tasks []TaskForScoring, profileSummary string) (string, error) {
	tasksJSON, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal tasks: %w", err)
	}

	var b strings.Builder
	b.WriteString("Score each of the following tasks from 0-100 for how much it advances the user's goals, ")
	b.WriteString("and recommend a bucket assignment.\n\n")

	if profileSummary != "" {
		b.WriteString("User's goals and priorities:\n")
		b.WriteString(profileSummary)
		b.WriteString("\n\n")
	}

	b.WriteString(fmt.Sprintf("Current date and time: %s\n\n", time.Now().Format(time.RFC3339)))
	b.WriteString("Tasks:\n")
	b.Write(tasksJSON)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- The NOW bucket holds at most 1 task: the single most important thing.\n")
	b.WriteString("- The NEXT bucket holds at most 3 tasks.\n")
	b.WriteString("- Everything else goes to LATER.\n")
	b.WriteString("- Overdue and near-due tasks should score higher, all else being equal.\n")
	b.WriteString("- Only reference task ids from the list above.\n")
	b.WriteString("\nRespond with a JSON object in this format:\n")
	b.WriteString(`{
  "scores": [
    {"task_id": "<uuid>", "score": 0-100, "bucket": "NOW" | "NEXT" | "LATER", "reasoning": "...", "confidence": 0.0-1.0}
  ],
  "recommendations": {"now": ["<uuid>"], "next": ["<uuid>"], "later": ["<uuid>"]},
  "overall_rationale": "..."
}`)
	b.WriteString("\n\nReturn only valid JSON.")

	return b.String(), nil
}

func buildSingleTaskPrompt(task TaskForScoring, profileSummary string) (string, error) {
	taskJSON, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal task: %w", err)
	}

	var b strings.Builder
	b.WriteString("Score the following task from 0-100 for how much it advances the user's goals, ")
	b.WriteString("and suggest a bucket (NOW, NEXT, or LATER).\n\n")

	if profileSummary != "" {
		b.WriteString("User's goals and priorities:\n")
		b.WriteString(profileSummary)
		b.WriteString("\n\n")
	}

	b.WriteString(fmt.Sprintf("Current date and time: %s\n\n", time.Now().Format(time.RFC3339)))
	b.WriteString("Task:\n")
	b.Write(taskJSON)
	b.WriteString("\n\nRespond with a JSON object in this format:\n")
	b.WriteString(`{"score": 0-100, "bucket": "NOW" | "NEXT" | "LATER", "reasoning": "...", "confidence": 0.0-1.0}`)
	b.WriteString("\n\nReturn only valid JSON.")

	return b.String(), nil
}

func buildProfilePrompt(profile *models.UserProfile) string {
	var b strings.Builder
	b.WriteString("Condense the following profile into a short brief (a few sentences) that a ")
	b.WriteString("prioritization assistant can use to judge which tasks matter most.\n\n")

	sections := []struct {
		label, text string
	}{
		{"Long-term goals", profile.LongTermGoals},
		{"Medium-term goals", profile.MediumTermGoals},
		{"Short-term focus", profile.ShortTermFocus},
		{"Business plan", profile.BusinessPlan},
		{"Life plan", profile.LifePlan},
		{"Priority principles", profile.PriorityPrinciples},
		{"Preferences", profile.Preferences},
	}
	for _, s := range sections {
		if s.text != "" {
			b.WriteString(s.label)
			b.WriteString(":\n")
			b.WriteString(s.text)
			b.WriteString("\n\n")
		}
	}

	return b.String()
}

// ParseBulkResult parses and validates a bulk scoring response. Every score
// and recommendation must reference a submitted task, scores must be 0-100,
// buckets must be NOW/NEXT/LATER, and confidence must be 0-1. A response
// that fails validation is an error, never an empty recommendation.
func ParseBulkResult(content string, submitted []TaskForScoring) (*BulkPriorityResult, error) {
	raw := extractJSON(content)

	var parsed struct {
		Scores []struct {
			TaskID     string  `json:"task_id"`
			Score      int     `json:"score"`
			Bucket     string  `json:"bucket"`
			Reasoning  string  `json:"reasoning"`
			Confidence float64 `json:"confidence"`
		} `json:"scores"`
		Recommendations struct {
			Now   []string `json:"now"`
			Next  []string `json:"next"`
			Later []string `json:"later"`
		} `json:"recommendations"`
		OverallRationale string `json:"overall_rationale"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	known := make(map[uuid.UUID]bool, len(submitted))
	for _, t := range submitted {
		known[t.ID] = true
	}

	result := &BulkPriorityResult{OverallRationale: parsed.OverallRationale}

	for _, s := range parsed.Scores {
		id, err := uuid.Parse(s.TaskID)
		if err != nil {
			return nil, fmt.Errorf("invalid task id %q in scores", s.TaskID)
		}
		if !known[id] {
			return nil, fmt.Errorf("score references unknown task %s", id)
		}
		if s.Score < 0 || s.Score > 100 {
			return nil, fmt.Errorf("score %d for task %s out of range", s.Score, id)
		}
		bucket := models.PriorityBucket(s.Bucket)
		if bucket != models.BucketNow && bucket != models.BucketNext && bucket != models.BucketLater {
			return nil, fmt.Errorf("invalid bucket %q for task %s", s.Bucket, id)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			return nil, fmt.Errorf("confidence %f for task %s out of range", s.Confidence, id)
		}
		result.Scores = append(result.Scores, PriorityScore{
			TaskID:     id,
			Score:      s.Score,
			Bucket:     bucket,
			Reasoning:  s.Reasoning,
			Confidence: s.Confidence,
		})
	}

	var err error
	if result.Recommendations.Now, err = parseIDList(parsed.Recommendations.Now, known, "now"); err != nil {
		return nil, err
	}
	if result.Recommendations.Next, err = parseIDList(parsed.Recommendations.Next, known, "next"); err != nil {
		return nil, err
	}
	if result.Recommendations.Later, err = parseIDList(parsed.Recommendations.Later, known, "later"); err != nil {
		return nil, err
	}

	if len(result.Recommendations.Now) > 1 {
		return nil, fmt.Errorf("recommendation places %d tasks in NOW, maximum is 1", len(result.Recommendations.Now))
	}
	if len(result.Recommendations.Next) > 3 {
		return nil, fmt.Errorf("recommendation places %d tasks in NEXT, maximum is 3", len(result.Recommendations.Next))
	}

	return result, nil
}

// ParseSingleScore parses and validates a single-task scoring response
func ParseSingleScore(content string, taskID uuid.UUID) (*PriorityScore, error) {
	raw := extractJSON(content)

	var parsed struct {
		Score      int     `json:"score"`
		Bucket     string  `json:"bucket"`
		Reasoning  string  `json:"reasoning"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if parsed.Score < 0 || parsed.Score > 100 {
		return nil, fmt.Errorf("score %d out of range", parsed.Score)
	}
	bucket := models.PriorityBucket(parsed.Bucket)
	if bucket != models.BucketNow && bucket != models.BucketNext && bucket != models.BucketLater {
		return nil, fmt.Errorf("invalid bucket %q", parsed.Bucket)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return nil, fmt.Errorf("confidence %f out of range", parsed.Confidence)
	}

	return &PriorityScore{
		TaskID:     taskID,
		Score:      parsed.Score,
		Bucket:     bucket,
		Reasoning:  parsed.Reasoning,
		Confidence: parsed.Confidence,
	}, nil
}

func parseIDList(ids []string, known map[uuid.UUID]bool, bucket string) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid task id %q in %s recommendation", s, bucket)
		}
		if !known[id] {
			return nil, fmt.Errorf("%s recommendation references unknown task %s", bucket, id)
		}
		out = append(out, id)
	}
	return out, nil
}

// extractJSON strips any non-JSON wrapper the model may have added
func extractJSON(content string) string {
	if len(content) > 0 && content[0] == '{' {
		return content
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end != -1 && end > start {
		return content[start : end+1]
	}
	return content
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register("openai", func(config map[string]string) (ScoringProvider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		model := config["model"]
		baseURL := config["base_url"]

		return NewOpenAIProviderWithConfig(apiKey, baseURL, model), nil
	})
}
