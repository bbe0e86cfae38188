package generation

import (
	"encoding/json"
	"regexp"
	"strings"

	"askmynotes/internal/domain"
)

// fenceRe matches the first closed fenced block, with an optional json tag.
var fenceRe = regexp.MustCompile("(?s)```(?i:json)?[ \t]*\\n?(.*?)```")

// ExtractJSON recovers a JSON object of type T from free-form model output.
// It tries the contents of the first closed fenced block, then the span from
// the first '{' to the last '}' of the whole text. Each attempt decodes into
// a fresh value, so a failed attempt never leaks fields into the result.
func ExtractJSON[T any](text string) (T, error) {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if v, err := decodeObject[T](m[1]); err == nil {
			return v, nil
		}
	}
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first >= 0 && last > first {
		if v, err := decodeObject[T](text[first : last+1]); err == nil {
			return v, nil
		}
	}
	var zero T
	return zero, domain.ErrMalformedOutput
}

func decodeObject[T any](raw string) (T, error) {
	var v T
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return v, domain.ErrMalformedOutput
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, err
	}
	return v, nil
}
