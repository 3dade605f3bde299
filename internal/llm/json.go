package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned by DecodeJSON when the response holds no object.
var ErrNoJSON = errors.New("no JSON object in response")

// DecodeJSON unmarshals the JSON object in a model response into v. Code
// fences are stripped, and an object surrounded by prose is cut out of it.
func DecodeJSON(text string, v any) error {
	body := extractObject(stripFence(strings.TrimSpace(text)))
	if body == "" {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(body), v)
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	end := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}

// extractObject returns the span from the first '{' to the last '}'.
func extractObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
