// Package anthropic wraps the official SDK behind the small vision-message
// surface the swing pipeline needs.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrInference marks any transport, auth, or API-level failure from the
// vision model. Callers must not assume partial results.
var ErrInference = eris.New("inference call failed")

// Client defines the Anthropic API operations used by the analysis pipeline.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
	TestConnection(ctx context.Context, model string, maxTokens int64) *ProbeResult
}

// MessageRequest is our own request type for CreateMessage. Content blocks
// keep their order on the wire.
type MessageRequest struct {
	Model     string
	MaxTokens int64
	Content   []ContentBlock
}

// ContentBlock is a single ordered block of user content: either text or a
// base64-encoded image.
type ContentBlock struct {
	Type      string // "text" or "image"
	Text      string
	MediaType string
	Data      string
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// ImageBlock builds a base64 image content block.
func ImageBlock(mediaType, data string) ContentBlock {
	return ContentBlock{Type: "image", MediaType: mediaType, Data: data}
}

// MessageResponse is our own response type from CreateMessage.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []ResponseBlock
	StopReason string
	Usage      TokenUsage
}

// ResponseBlock represents a block of content in a response.
type ResponseBlock struct {
	Type string
	Text string
}

// FirstText returns the first text block of the response, or "".
func (r *MessageResponse) FirstText() string {
	for _, b := range r.Content {
		if b.Type == "text" {
			return b.Text
		}
	}
	return ""
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// modelPricing holds per-million-token pricing for known models.
var modelPricing = map[string][2]float64{
	// model → {input $/MTok, output $/MTok}
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-6":            {15.00, 75.00},
}

// EstimateCost computes an estimated cost in USD from a TokenUsage and model
// ID. Returns 0 for unknown models.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	inCost := (float64(u.InputTokens) / 1e6) * pricing[0]
	outCost := (float64(u.OutputTokens) / 1e6) * pricing[1]
	return inCost + outCost
}

// LogCost logs token usage and estimated cost with structured zap fields.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}

// ProbeResult reports the outcome of a connectivity self-test.
type ProbeResult struct {
	Success      bool   `json:"success"`
	ResponseID   string `json:"response_id,omitempty"`
	Model        string `json:"model,omitempty"`
	ResponseText string `json:"response_text,omitempty"`
	InputTokens  int64  `json:"input_tokens,omitempty"`
	OutputTokens int64  `json:"output_tokens,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new Anthropic client backed by the SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(toSDKBlocks(req.Content)...),
		},
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrapf(ErrInference, "anthropic: create message: %v", err)
	}

	return fromSDKMessage(msg), nil
}

// TestConnection sends a minimal fixed prompt to verify key, connectivity,
// and auth. It is an operational probe only; the pipeline never calls it.
func (c *sdkClient) TestConnection(ctx context.Context, model string, maxTokens int64) *ProbeResult {
	resp, err := c.CreateMessage(ctx, MessageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Content:   []ContentBlock{TextBlock("Please say hello.")},
	})
	if err != nil {
		return &ProbeResult{
			Success:      false,
			ErrorType:    "api_error",
			ErrorMessage: err.Error(),
		}
	}

	return &ProbeResult{
		Success:      true,
		ResponseID:   resp.ID,
		Model:        resp.Model,
		ResponseText: resp.FirstText(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
}

// --- SDK type conversion helpers ---

func toSDKBlocks(blocks []ContentBlock) []sdk.ContentBlockParamUnion {
	out := make([]sdk.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "image":
			out = append(out, sdk.NewImageBlockBase64(b.MediaType, b.Data))
		default:
			out = append(out, sdk.NewTextBlock(b.Text))
		}
	}
	return out
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	blocks := make([]ResponseBlock, 0, len(msg.Content))
	for _, b := range msg.Content {
		blocks = append(blocks, ResponseBlock{
			Type: b.Type,
			Text: b.Text,
		})
	}

	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Content:    blocks,
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}
