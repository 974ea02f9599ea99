package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// Task names the purpose of a model call. The model tier is a pure function
// of the task, independent of content.
type Task string

const (
	TaskRelevanceScoring Task = "relevanceScoring"
	TaskContentInsights  Task = "contentInsights"
	TaskComplexAnalysis  Task = "complexAnalysis"
	TaskFallback         Task = "fallback"
)

// Model tiers: cheap/fast for scoring and insights, premium for deep
// analysis, an emergency low-cost model as last resort.
const (
	modelCheap     = "gpt-4o-mini"
	modelPremium   = "gpt-4o"
	modelEmergency = "gpt-4.1-nano"
)

// ModelForTask returns the model a task runs on.
func ModelForTask(task Task) string {
	switch task {
	case TaskComplexAnalysis:
		return modelPremium
	case TaskFallback:
		return modelEmergency
	default:
		return modelCheap
	}
}

// modelPricing is USD per 1K tokens.
type modelPricing struct {
	input  float64
	output float64
}

var pricingTable = map[string]modelPricing{
	modelCheap:     {input: 0.00015, output: 0.0006},
	modelPremium:   {input: 0.0025, output: 0.01},
	modelEmergency: {input: 0.0001, output: 0.0004},
}

// GatewayErrorKind classifies model-service failures.
type GatewayErrorKind string

const (
	ErrKindInvalidKey    GatewayErrorKind = "invalid_key"
	ErrKindRateLimit     GatewayErrorKind = "rate_limit"
	ErrKindQuotaExceeded GatewayErrorKind = "quota_exceeded"
	ErrKindCostLimit     GatewayErrorKind = "cost_limit"
	ErrKindNetwork       GatewayErrorKind = "network"
	ErrKindTimeout       GatewayErrorKind = "timeout"
	ErrKindUnknown       GatewayErrorKind = "unknown"
)

// GatewayError is the structured failure returned by the gateway.
type GatewayError struct {
	Kind       GatewayErrorKind
	Message    string
	RetryAfter time.Duration
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("model gateway: %s: %s", e.Kind, e.Message)
}

// IsCostLimitError reports whether err is a cost-gate rejection. Cost-limit
// rejections are hard stops, never silently degraded.
func IsCostLimitError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == ErrKindCostLimit
}

// Message is one chat message sent to the completion service.
type Message struct {
	Role    string `json:"role"` // "system" or "user"
	Content string `json:"content"`
}

// CompletionRequest is the gateway's view of one model call.
type CompletionRequest struct {
	Model        string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONResponse bool
}

// CompletionUsage reports token consumption of one call.
type CompletionUsage struct {
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
	TotalTokens      int64 `json:"totalTokens"`
}

// CompletionResponse is a successful model reply.
type CompletionResponse struct {
	Content string
	Usage   CompletionUsage
	Cost    float64
}

// CompletionClient is the transport behind the gateway. Tests substitute
// fakes; production uses the OpenAI SDK.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// OpenAIClient implements CompletionClient with the official SDK.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates an OpenAI-backed completion client.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: &client}
}

// Complete sends a chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.JSONResponse {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices from OpenAI")
	}

	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: CompletionUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// UsageState is the persisted shape of the usage tracker.
type UsageState struct {
	DailyUsage   float64 `json:"dailyUsage"`
	LastReset    string  `json:"lastReset"` // YYYY-MM-DD
	TotalCost    float64 `json:"totalCost"`
	RequestCount int64   `json:"requestCount"`
}

// UsageTracker meters model spend. DailyUsage resets when the stored date
// differs from today; TotalCost and RequestCount are monotonic. Guarded by a
// mutex since gateway calls may run on concurrent goroutines.
type UsageTracker struct {
	mu    sync.Mutex
	state UsageState
	path  string
	now   func() time.Time
}

// NewUsageTracker creates a tracker persisting to path. Load must be called
// explicitly; constructing the tracker has no side effects.
func NewUsageTracker(path string) *UsageTracker {
	return &UsageTracker{path: path, now: time.Now}
}

// Load reads persisted usage state. A missing file is a fresh start, not an
// error.
func (t *UsageTracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading usage state: %w", err)
	}
	if err := json.Unmarshal(data, &t.state); err != nil {
		return fmt.Errorf("parsing usage state: %w", err)
	}
	return nil
}

// Save writes usage state to disk.
func (t *UsageTracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *UsageTracker) saveLocked() error {
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling usage state: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0644); err != nil {
		return fmt.Errorf("saving usage state: %w", err)
	}
	return nil
}

func (t *UsageTracker) today() string {
	return t.now().Format("2006-01-02")
}

// resetIfStaleLocked zeroes the daily counter when the day rolled over.
func (t *UsageTracker) resetIfStaleLocked() {
	if t.state.LastReset != t.today() {
		t.state.DailyUsage = 0
		t.state.LastReset = t.today()
	}
}

// DailyUsage returns today's spend.
func (t *UsageTracker) DailyUsage() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfStaleLocked()
	return t.state.DailyUsage
}

// Snapshot returns a copy of the current state.
func (t *UsageTracker) Snapshot() UsageState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfStaleLocked()
	return t.state
}

// Record adds one request's cost to the counters and persists the state.
func (t *UsageTracker) Record(cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfStaleLocked()
	t.state.DailyUsage += cost
	t.state.TotalCost += cost
	t.state.RequestCount++
	if err := t.saveLocked(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// CostLimits bound model spend.
type CostLimits struct {
	DailyLimit       float64 // USD per day
	PerRequestLimit  float64 // USD per request (the per-video gate)
	WarningThreshold float64 // fraction of DailyLimit that logs a warning
}

// DefaultCostLimits returns conservative spend limits.
func DefaultCostLimits() CostLimits {
	return CostLimits{
		DailyLimit:       5.00,
		PerRequestLimit:  0.25,
		WarningThreshold: 0.8,
	}
}

// Gateway is the single choke point for completion-service calls: model
// selection, cost estimation, limit enforcement, usage tracking and error
// mapping all live here. Nothing else in the pipeline talks to the model
// service directly.
type Gateway struct {
	client  CompletionClient
	tracker *UsageTracker
	limits  CostLimits
	verbose bool
}

// NewGateway creates a model gateway.
func NewGateway(client CompletionClient, tracker *UsageTracker, limits CostLimits, verbose bool) *Gateway {
	return &Gateway{client: client, tracker: tracker, limits: limits, verbose: verbose}
}

// EstimateTokens approximates token count as length/4, the rule of thumb for
// English text.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// EstimateCost projects the cost of a request from its prompt length and
// output cap using the per-model pricing table.
func EstimateCost(model string, messages []Message, maxTokens int) float64 {
	pricing, ok := pricingTable[model]
	if !ok {
		pricing = pricingTable[modelPremium] // price unknown models pessimistically
	}

	var promptChars int
	for _, m := range messages {
		promptChars += len(m.Content)
	}
	inputTokens := promptChars / 4

	outputTokens := maxTokens
	if outputTokens <= 0 {
		outputTokens = 1000
	}

	return float64(inputTokens)/1000*pricing.input + float64(outputTokens)/1000*pricing.output
}

// actualCost prices a completed request from its reported usage.
func actualCost(model string, usage CompletionUsage) float64 {
	pricing, ok := pricingTable[model]
	if !ok {
		pricing = pricingTable[modelPremium]
	}
	return float64(usage.PromptTokens)/1000*pricing.input + float64(usage.CompletionTokens)/1000*pricing.output
}

// MakeRequest runs one model call. The cost gate is evaluated before any
// network traffic: a request projected past the per-request or daily limit is
// rejected outright.
func (g *Gateway) MakeRequest(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if req.Model == "" {
		req.Model = modelCheap
	}

	estimated := EstimateCost(req.Model, req.Messages, req.MaxTokens)
	daily := g.tracker.DailyUsage()

	if estimated > g.limits.PerRequestLimit {
		return nil, &GatewayError{
			Kind:    ErrKindCostLimit,
			Message: fmt.Sprintf("estimated cost $%.4f exceeds per-request limit $%.2f", estimated, g.limits.PerRequestLimit),
		}
	}
	if daily+estimated > g.limits.DailyLimit {
		return nil, &GatewayError{
			Kind:    ErrKindCostLimit,
			Message: fmt.Sprintf("estimated cost $%.4f would exceed daily limit $%.2f (used $%.4f)", estimated, g.limits.DailyLimit, daily),
		}
	}
	if g.limits.WarningThreshold > 0 && daily+estimated > g.limits.WarningThreshold*g.limits.DailyLimit {
		fmt.Fprintf(os.Stderr, "Warning: daily model spend at $%.4f of $%.2f limit\n", daily+estimated, g.limits.DailyLimit)
	}

	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		return nil, mapCompletionError(err)
	}

	resp.Cost = actualCost(req.Model, resp.Usage)
	g.tracker.Record(resp.Cost)

	if g.verbose {
		fmt.Printf("Model %s: %d tokens, $%.5f\n", req.Model, resp.Usage.TotalTokens, resp.Cost)
	}

	return resp, nil
}

// RequestForTask builds a request on the task's model tier.
func (g *Gateway) RequestForTask(ctx context.Context, task Task, messages []Message, maxTokens int, jsonResponse bool) (*CompletionResponse, error) {
	return g.MakeRequest(ctx, CompletionRequest{
		Model:        ModelForTask(task),
		Messages:     messages,
		MaxTokens:    maxTokens,
		Temperature:  0.3,
		JSONResponse: jsonResponse,
	})
}

// Usage exposes the tracker for reporting commands.
func (g *Gateway) Usage() *UsageTracker {
	return g.tracker
}

// mapCompletionError translates SDK and transport failures into the gateway
// taxonomy.
func mapCompletionError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401:
			return &GatewayError{Kind: ErrKindInvalidKey, Message: "invalid or missing API key"}
		case 402:
			return &GatewayError{Kind: ErrKindQuotaExceeded, Message: "account quota exceeded"}
		case 429:
			ge := &GatewayError{Kind: ErrKindRateLimit, Message: "rate limited"}
			if apierr.Response != nil {
				if ra := apierr.Response.Header.Get("Retry-After"); ra != "" {
					if secs, convErr := strconv.Atoi(ra); convErr == nil {
						ge.RetryAfter = time.Duration(secs) * time.Second
					}
				}
			}
			return ge
		}
		if apierr.StatusCode >= 500 {
			return &GatewayError{Kind: ErrKindNetwork, Message: fmt.Sprintf("server error %d", apierr.StatusCode)}
		}
		return &GatewayError{Kind: ErrKindUnknown, Message: apierr.Error()}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &GatewayError{Kind: ErrKindTimeout, Message: "request timed out"}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &GatewayError{Kind: ErrKindNetwork, Message: urlErr.Error()}
	}

	return &GatewayError{Kind: ErrKindUnknown, Message: err.Error()}
}
