package reasoning

import (
	"encoding/json"
	"strings"
)

// generateResponse covers both shapes the service returns: a flat text
// field, or the nested candidates -> content -> parts -> text form.
type generateResponse struct {
	Text       string `json:"text"`
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ExtractText pulls the generated text out of a raw response body.
func ExtractText(body []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", NewFormatError("response body is not JSON", err)
	}
	if resp.Text != "" {
		return resp.Text, nil
	}
	if len(resp.Candidates) > 0 {
		parts := resp.Candidates[0].Content.Parts
		if len(parts) > 0 && parts[0].Text != "" {
			return parts[0].Text, nil
		}
	}
	return "", NewFormatError("no text in response", nil)
}

// StripFences removes markdown code fence lines from model output. Models
// often wrap JSON payloads in ```json blocks despite instructions not to.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.Contains(text, "```") {
		return text
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// DecodeJSON strips any fence wrapper and unmarshals the payload into v.
func DecodeJSON(text string, v any) error {
	cleaned := StripFences(text)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return NewFormatError("payload is not valid JSON", err)
	}
	return nil
}
