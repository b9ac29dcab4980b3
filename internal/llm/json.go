package llm

import (
	"encoding/json"
	"errors"
	"strings"

	"budget-backend/internal/shared/apperr"
)

// ExtractJSON strips a markdown code fence around a JSON payload.
// fenced reports whether a fence was removed.
func ExtractJSON(raw string) (payload string, fenced bool) {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "```")
	if start < 0 {
		return s, false
	}
	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		lang := strings.TrimSpace(body[:nl])
		if lang == "" || isFenceLanguage(lang) {
			body = body[nl+1:]
		}
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// OutermostObject returns the substring between the first '{' and the last '}'.
func OutermostObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func isFenceLanguage(lang string) bool {
	switch strings.ToLower(lang) {
	case "json", "jsonc", "javascript", "js":
		return true
	}
	return false
}

// Locate returns the JSON text inside generation output. Fences and text around
// the outermost object are tolerated. Output with no syntactically valid JSON is
// a *apperr.DataCorruptionError.
func Locate(raw string) (payload string, fenced bool, err error) {
	payload, fenced = ExtractJSON(raw)
	if payload == "" {
		return "", fenced, apperr.Corrupted(raw, errors.New("empty output"))
	}
	if json.Valid([]byte(payload)) {
		return payload, fenced, nil
	}
	if obj, ok := OutermostObject(payload); ok && json.Valid([]byte(obj)) {
		return obj, fenced, nil
	}
	var v any
	return "", fenced, apperr.Corrupted(raw, json.Unmarshal([]byte(payload), &v))
}

// Fields splits generation output into its top-level object members without
// checking their types. Valid JSON that is not an object yields no fields.
func Fields(raw string) (fields map[string]json.RawMessage, fenced bool, err error) {
	payload, fenced, err := Locate(raw)
	if err != nil {
		return nil, fenced, err
	}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return map[string]json.RawMessage{}, fenced, nil
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, fenced, nil
}

// Decode unmarshals generation output into v. Failures, including members of
// the wrong type, are *apperr.DataCorruptionError.
func Decode(raw string, v any) (fenced bool, err error) {
	payload, fenced, err := Locate(raw)
	if err != nil {
		return fenced, err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fenced, apperr.Corrupted(raw, err)
	}
	return fenced, nil
}
