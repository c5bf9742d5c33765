package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrEmptyReply   = errors.New("reply is empty")
	ErrInvalidReply = errors.New("reply does not match the expected shape")
)

var schemaCache sync.Map // field -> *gojsonschema.Schema

// DecodeField validates raw against a single-field object schema {field: non-empty string}
// and returns that field. A surrounding markdown code fence is tolerated.
func DecodeField(raw, field string) (string, error) {
	body := stripCodeFence(strings.TrimSpace(raw))
	if body == "" {
		return "", ErrEmptyReply
	}

	schema, err := fieldSchema(field)
	if err != nil {
		return "", err
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return "", fmt.Errorf("%w: %s", ErrInvalidReply, strings.Join(msgs, "; "))
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	var out string
	if err := json.Unmarshal(obj[field], &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: %s is blank", ErrInvalidReply, field)
	}
	return out, nil
}

func fieldSchema(field string) (*gojsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(field); ok {
		return cached.(*gojsonschema.Schema), nil
	}

	doc, err := json.Marshal(map[string]any{
		"type":     "object",
		"required": []string{field},
		"properties": map[string]any{
			field: map[string]any{
				"type":      "string",
				"minLength": 1,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	actual, _ := schemaCache.LoadOrStore(field, schema)
	return actual.(*gojsonschema.Schema), nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
