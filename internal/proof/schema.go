package proof

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"bazaar/internal/domain"
)

// Fingerprint derives a shape summary of content without retaining any
// values. JSON content is classified recursively; anything that is not valid
// JSON (including invalid UTF-8) collapses into a text-mode node carrying
// aggregate counts only.
func Fingerprint(content []byte) *domain.SchemaNode {
	if utf8.Valid(content) {
		if node, ok := fingerprintJSON(content); ok {
			return node
		}
	}
	return fingerprintText(content)
}

func fingerprintJSON(content []byte) (*domain.SchemaNode, bool) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, false
	}
	// Trailing non-whitespace means the buffer is not a single JSON document.
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return classify(value), true
}

func classify(value any) *domain.SchemaNode {
	switch v := value.(type) {
	case map[string]any:
		fields := make(map[string]*domain.SchemaNode, len(v))
		for name, child := range v {
			fields[name] = classify(child)
		}
		return &domain.SchemaNode{
			Type:       "object",
			FieldCount: len(v),
			Fields:     fields,
		}
	case []any:
		item := &domain.SchemaNode{Type: "unknown"}
		if len(v) > 0 {
			item = classify(v[0])
		}
		return &domain.SchemaNode{
			Type:       "array",
			ItemCount:  len(v),
			ItemSchema: item,
		}
	case string:
		return &domain.SchemaNode{Type: "string"}
	case json.Number:
		return &domain.SchemaNode{Type: "number"}
	case bool:
		return &domain.SchemaNode{Type: "boolean"}
	case nil:
		return &domain.SchemaNode{Type: "null"}
	}
	return &domain.SchemaNode{Type: "unknown"}
}

func fingerprintText(content []byte) *domain.SchemaNode {
	text := string(content)
	return &domain.SchemaNode{
		Mode:      domain.SchemaModeText,
		LineCount: strings.Count(text, "\n") + 1,
		WordCount: len(strings.Fields(text)),
		CharCount: utf8.RuneCountInString(text),
	}
}

// SchemaCommitment hashes the canonical encoding of the full (private)
// fingerprint tree. The commitment binds the shape, not the content.
func SchemaCommitment(node *domain.SchemaNode) (string, error) {
	return CanonicalHash(schemaValue(node))
}

func schemaValue(node *domain.SchemaNode) map[string]any {
	if node == nil {
		return map[string]any{"type": "unknown"}
	}
	if node.Mode == domain.SchemaModeText {
		return map[string]any{
			"mode":       domain.SchemaModeText,
			"line_count": node.LineCount,
			"word_count": node.WordCount,
			"char_count": node.CharCount,
		}
	}
	switch node.Type {
	case "object":
		fields := make(map[string]any, len(node.Fields))
		for name, child := range node.Fields {
			fields[name] = schemaValue(child)
		}
		return map[string]any{
			"type":        "object",
			"field_count": node.FieldCount,
			"fields":      fields,
		}
	case "array":
		return map[string]any{
			"type":        "array",
			"item_count":  node.ItemCount,
			"item_schema": schemaValue(node.ItemSchema),
		}
	default:
		return map[string]any{"type": node.Label()}
	}
}
