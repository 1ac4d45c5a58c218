// Package extract turns transcript text into candidate operations via an
// OpenAI chat model, and audio into transcript text via Whisper. Both
// clients are plain HTTP; the rest of the pipeline only sees the Extractor
// and Transcriber interfaces.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/taskscribe/internal/models"
	"github.com/fentz26/taskscribe/internal/ops"
)

// Extractor proposes operations for one transcript against the current
// board state. Streaming mode tells the model the transcript may be a
// partial utterance so it extracts conservatively.
type Extractor interface {
	Extract(ctx context.Context, transcript string, snap *models.BoardSnapshot, streaming bool) ([]ops.Operation, error)
}

const (
	defaultChatModel = "gpt-4o"
	chatTimeout      = 60 * time.Second
)

// OpenAIExtractor implements Extractor over the chat completions API.
type OpenAIExtractor struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	now     func() time.Time
}

// NewOpenAIExtractor creates an extractor with the default model.
func NewOpenAIExtractor(apiKey string) *OpenAIExtractor {
	return &OpenAIExtractor{
		apiKey:  apiKey,
		model:   defaultChatModel,
		baseURL: "https://api.openai.com/v1",
		http:    &http.Client{Timeout: chatTimeout},
		now:     time.Now,
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (e *OpenAIExtractor) WithBaseURL(url string) *OpenAIExtractor {
	e.baseURL = url
	return e
}

const streamingContext = `
IMPORTANT STREAMING INSTRUCTIONS:
You are processing a live audio stream that may contain partial sentences or incomplete thoughts.
- Only extract operations when you are confident the speaker has finished expressing the complete instruction
- If a sentence seems cut off or incomplete, DO NOT extract an operation from it
- Wait for more context in future chunks before making decisions on ambiguous statements
- Prioritize precision over recall: better to miss an operation than to invent an incorrect one`

const systemPrompt = "You are a project management AI. Extract task operations from spoken input. Return ONLY valid JSON."

func (e *OpenAIExtractor) buildPrompt(transcript string, snap *models.BoardSnapshot, streaming bool) string {
	labels := "No labels found"
	if len(snap.Labels) > 0 {
		quoted := make([]string, len(snap.Labels))
		for i, l := range snap.Labels {
			quoted[i] = fmt.Sprintf("%q", l)
		}
		labels = strings.Join(quoted, ", ")
	}
	statuses := make([]string, len(snap.Statuses))
	for i, s := range snap.Statuses {
		statuses[i] = fmt.Sprintf("- %q", s)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Today's date is %s.\n\n", e.now().Format("2006-01-02"))
	b.WriteString(FormatBoardState(snap) + "\n\n")
	b.WriteString("Available Status Options:\n" + strings.Join(statuses, "\n") + "\n\n")
	b.WriteString("Available Labels (Epics):\n" + labels + "\n")
	if streaming {
		b.WriteString(streamingContext + "\n")
	}
	fmt.Fprintf(&b, "\nSPOKEN INPUT TO PROCESS:\n%q\n\n", transcript)
	b.WriteString(`Extract task operations from the spoken input: create, update, delete,
rename, comment, create_epic, assign_epic, assign_member, remove_member,
create_checklist, update_checklist_item, delete_checklist_item,
delete_checklist, add_reflection_positive, add_reflection_negative,
create_improvement_task.

Rules:
- Only create or assign labels when explicitly requested; use Title Case
  for all label names and check for an existing similar label first.
- Rename operations must carry "old_name" and "new_name".
- Checklist operations reference the task via "card" and carry
  "checklist", "item", "items", "state", or "force_new" as needed.
- Use exact task names from the board state when referencing existing
  tasks.

Return ONLY a JSON array of operation objects, each with an "operation"
field and the fields for that kind. No explanations or text outside the
JSON array.`)
	return b.String()
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract implements Extractor.
func (e *OpenAIExtractor) Extract(ctx context.Context, transcript string, snap *models.BoardSnapshot, streaming bool) ([]ops.Operation, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}

	payload := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: e.buildPrompt(transcript, snap, streaming)},
		},
		Temperature: 0.1,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("chat error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices")
	}

	raw := CarveJSONArray(chat.Choices[0].Message.Content)
	if raw == "" {
		return nil, nil
	}
	batch, err := ops.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode extracted operations: %w", err)
	}
	return batch, nil
}

// CarveJSONArray strips markdown code fences and returns the substring from
// the first '[' to the last ']'. Models wrap their JSON unpredictably; this
// recovers the array without parsing the prose around it.
func CarveJSONArray(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
