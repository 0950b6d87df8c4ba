// Package vision extracts table-of-contents fragments from page
// images using an OpenAI vision model.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const systemPrompt = "You are a specialized legal document analyzer tasked with extracting ONLY the actual " +
	"Table of Contents from legal and judicial documents. Extract EXACTLY what is visible " +
	"in the images without fabrication or inference. If you see a Table of Contents with " +
	"case numbers, lawsuit details, and page numbers, extract it PRECISELY as it appears."

const pagePrompt = "Extract the Table of Contents entries visible on this PDF page. The TOC follows this specific format:\n\n" +
	"[Case Number] Juicio nº [Case ID] a instancia de [Plaintiff] contra [Defendant] " +
	".................. Página [Page Number]\n\n" +
	"Requirements:\n" +
	"1. Extract ONLY what is actually visible in the image\n" +
	"2. Maintain exact case numbers, party names, and page numbers\n" +
	"3. Preserve section headers like 'Juzgado de lo Social Número X de Santa Cruz de Tenerife'\n" +
	"4. Keep dotted leader lines (..........) connecting entries to page numbers\n\n" +
	"Format using monospace to preserve the original layout. " +
	"If the page contains no Table of Contents entries, respond with an empty string."

// Client calls the OpenAI chat completions API with page images.
type Client struct {
	client       openai.Client
	defaultModel string

	// Stats aggregates call latencies for the /api/stats/llm endpoint.
	Stats *LLMStats
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			// The pipeline owns the retry policy; the SDK must not
			// retry underneath it or attempts get double-counted.
			option.WithMaxRetries(0),
			option.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
		),
		defaultModel: model,
		Stats:        NewLLMStats(time.Hour),
	}
}

// Model returns the default model identifier.
func (c *Client) Model() string {
	return c.defaultModel
}

// ExtractPage sends one rendered page to the vision model and returns
// the TOC fragment it reads from the image. An empty fragment means
// the page carries no TOC content.
func (c *Client) ExtractPage(ctx context.Context, image []byte, model string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(pagePrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    imageURL,
					Detail: "high",
				}),
			}),
		},
		MaxTokens: openai.Int(20000),
	})
	if c.Stats != nil {
		c.Stats.Record(time.Since(start).Milliseconds())
	}
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
				return "", &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
			}
			return "", fmt.Errorf("openai status %d: %s", apiErr.StatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("openai api: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
