package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Result is the structured judgment returned by the hosted model. Every
// metric is a percentage-styled string ("85%") as emitted by the model.
type Result struct {
	Toxicity       string   `json:"toxicity"`
	Spam           string   `json:"spam"`
	Negativity     string   `json:"negativity"`
	Friendliness   string   `json:"friendliness"`
	Helpfulness    string   `json:"helpfulness"`
	ModAlertLevel  string   `json:"mod_alert_level"`
	Problems       []string `json:"problems"`
	RecentMessages []string `json:"recent_messages"`
}

// Client calls an OpenAI-compatible chat-completion API to score a user's
// recent chat messages.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// New creates a classifier client. baseURL may point at any OpenAI-compatible
// endpoint (e.g. https://api.deepseek.com).
func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

// Classify sends the user's buffered messages to the model and parses its
// JSON verdict. Any transport error, non-JSON reply, or reply missing the
// mod_alert_level field is returned as an error.
func (c *Client) Classify(ctx context.Context, messages []string) (*Result, error) {
	prompt, err := BuildPrompt(messages)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		MaxTokens:   200,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	return ParseResult(resp.Choices[0].Message.Content)
}

// promptTemplate instructs the model to score the chat log and reply with
// strict JSON. The chat log is appended as a JSON array of message strings.
const promptTemplate = `You are an AI moderator analyzing a Twitch user's chat history. Analyze the provided chat log and output the following metrics as percentages (0-100%%):

- Toxicity - percentage of messages containing toxic language.
- Spam - percentage of messages that appear to be spam.
- Negativity - percentage of messages with negative sentiment.
- Friendliness - percentage of messages that are friendly.
- Helpfulness - percentage of messages that are helpful.

Also, based on these metrics, calculate a "mod_alert_level" percentage that reflects the likelihood that moderators should monitor this user. For example, a higher mod_alert_level indicates a greater need for mod attention.

Additionally, identify any potential issues with their behavior (e.g., "High negativity", "Excessive spam", etc.) and include the user's most recent messages.

Output your results in strict JSON format with the following structure:
{
  "toxicity": "<percentage>%%",
  "spam": "<percentage>%%",
  "negativity": "<percentage>%%",
  "friendliness": "<percentage>%%",
  "helpfulness": "<percentage>%%",
  "mod_alert_level": "<percentage>%%",
  "problems": ["<issue1>", "<issue2>", ...],
  "recent_messages": ["<most recent message 1>", "<most recent message 2>", ...]
}

Do not output any additional text or commentary.

Chat log:
%s`

// BuildPrompt renders the system prompt for a set of buffered messages.
func BuildPrompt(messages []string) (string, error) {
	chatLog, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("marshal chat log: %w", err)
	}
	return fmt.Sprintf(promptTemplate, string(chatLog)), nil
}

// ParseResult decodes the model's reply into a Result. Models routinely wrap
// JSON in a markdown code fence despite instructions, so fences are stripped
// before decoding. A reply missing mod_alert_level is malformed.
func ParseResult(text string) (*Result, error) {
	text = stripFence(strings.TrimSpace(text))

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("decode classifier output: %w", err)
	}
	if result.ModAlertLevel == "" {
		return nil, fmt.Errorf("classifier output missing mod_alert_level")
	}
	return &result, nil
}

// stripFence removes a surrounding ``` or ```json markdown fence, if present.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
