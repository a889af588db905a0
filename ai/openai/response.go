package openai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// unquotedKey matches a key that lost its opening quote, e.g. `{keywords": [`.
var unquotedKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_]+)"\s*:`)

// keywordResponse is the JSON shape requested from the model.
type keywordResponse struct {
	Keywords []string `json:"keywords"`
}

// parseKeywordResponse extracts the keyword list from a model reply.
// It tolerates code fences, chatter around the object, a bare JSON array,
// and keys missing their opening quote.
func parseKeywordResponse(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "[") {
		var list []string
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}
	text = unquotedKey.ReplaceAllString(text, `$1"$2":`)

	var resp keywordResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, err
	}
	return resp.Keywords, nil
}
