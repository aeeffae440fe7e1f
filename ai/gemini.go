/*
gemini.go - Gemini chat client

PURPOSE:
  Calls the Gemini generateContent REST endpoint directly (no SDK). The
  system instruction embeds the rendered data context so the model answers
  from exact figures instead of guessing. This is the only file in the
  module that makes external API calls.

AVAILABILITY:
  A client without an API key reports Available() == false and the API
  layer degrades the chat endpoints instead of erroring.
*/
package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultModel    = "gemini-2.0-flash"
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
)

// systemInstruction is the assistant persona. The data context is appended
// per request.
const systemInstruction = `You are Clarity AI, an intelligent insurance data analytics assistant embedded in the Clarity BI dashboard.
You have access to REAL, DETAILED data provided in each message under sections like:
  === MONTHLY SALES ===, === DEALER PERFORMANCE ===, === PRODUCT MIX ===,
  === CLAIMS BY STATUS ===, === MONTHLY CLAIMS TREND ===, etc.

RULES:
- ALWAYS read and use the exact numbers from the data context provided.
- When asked "which month has most/least sales" scan the MONTHLY SALES table and give the specific period and premium value.
- When asked about top/bottom dealers, products, makes scan the relevant breakdown table in the context.
- Never say you don't have data if it is present in the context.
- Quote exact figures and use **bold** for key numbers and periods.
- Lead with the direct answer in one sentence, then supporting detail.
- Keep responses concise but precise. Use bullet points for lists.`

// Config configures the Gemini client.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string
}

// Client is a Gemini chat client.
type Client struct {
	config Config
	http   *http.Client
}

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// NewClient creates a client. Missing config fields get defaults; a missing
// API key yields an unavailable client.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Available reports whether the client can reach the API.
func (c *Client) Available() bool { return c.config.APIKey != "" }

// Chat answers a user message grounded in the data context, continuing the
// given history.
func (c *Client) Chat(message, dataContext string, history []Message) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("gemini: no API key configured")
	}

	contents := make([]geminiContent, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: "DATA CONTEXT:\n" + dataContext + "\n\nUSER QUESTION: " + message}},
	})

	return c.call(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
		Contents:          contents,
	})
}

// Suggestions asks for short starter questions matching the loaded data.
// Returns up to five, one per line from the model.
func (c *Client) Suggestions(dataContext string) []string {
	if !c.Available() {
		return nil
	}

	prompt := "Based on this insurance analytics data, suggest 5 short questions an analyst might ask. One per line, no numbering, no markdown.\n\n" + dataContext
	text, err := c.call(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// =============================================================================
// API CALL
// =============================================================================

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Client) call(req geminiRequest) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.config.Endpoint, c.config.Model, c.config.APIKey)

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	resp, err := c.http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("gemini: parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini: error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
