// Package frontmatter encodes and decodes the structured header block
// carried at the top of project and task files.
//
// A document is a YAML mapping fenced by "---" lines, followed by a blank
// line and the free-form markdown body. The mapping is open: unknown keys
// are preserved, and key order survives a decode/encode round trip.
package frontmatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Fields is an insertion-ordered open mapping of header keys to values.
// Values hold whatever YAML produced: string, int, bool, []any, nil.
type Fields struct {
	keys   []string
	values map[string]any
}

// New returns an empty Fields.
func New() *Fields {
	return &Fields{values: make(map[string]any)}
}

// Set stores a value under key. A new key is appended after existing keys;
// an existing key keeps its position.
func (f *Fields) Set(key string, value any) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the raw value for key.
func (f *Fields) Get(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Has reports whether key is present.
func (f *Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Delete removes key if present.
func (f *Fields) Delete(key string) {
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of keys.
func (f *Fields) Len() int {
	return len(f.keys)
}

// GetString returns the value for key rendered as a string.
// Missing and null values come back empty.
func (f *Fields) GetString(key string) string {
	v, ok := f.values[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetInt returns the value for key as an int. The second return is false
// when the key is missing or not numeric.
func (f *Fields) GetInt(key string) (int, bool) {
	v, ok := f.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// GetStrings returns the value for key as a string slice. Scalars become a
// one-element slice; missing and null values come back nil.
func (f *Fields) GetStrings(key string) []string {
	v, ok := f.values[key]
	if !ok || v == nil {
		return nil
	}
	switch s := v.(type) {
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if item == nil {
				continue
			}
			if str, ok := item.(string); ok {
				out = append(out, str)
			} else {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

// Map returns a shallow copy of the mapping, losing order. Useful for
// JSON encoding.
func (f *Fields) Map() map[string]any {
	out := make(map[string]any, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Decode splits raw text into its header fields and body. Text without a
// leading "---" fence is all body with empty fields.
func Decode(raw string) (*Fields, string, error) {
	fields := New()

	if !strings.HasPrefix(raw, delimiter+"\n") && raw != delimiter {
		return fields, raw, nil
	}

	rest := strings.TrimPrefix(raw, delimiter)
	rest = strings.TrimPrefix(rest, "\n")

	var block, body string
	if idx := strings.Index(rest, "\n"+delimiter+"\n"); idx >= 0 {
		block = rest[:idx]
		body = rest[idx+len(delimiter)+2:]
	} else if strings.HasSuffix(rest, "\n"+delimiter) {
		block = strings.TrimSuffix(rest, "\n"+delimiter)
	} else {
		// Unterminated fence: treat everything as body.
		return fields, raw, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, "", fmt.Errorf("failed to parse header: %w", err)
	}

	if len(doc.Content) > 0 {
		mapping := doc.Content[0]
		if mapping.Kind != yaml.MappingNode {
			return nil, "", fmt.Errorf("header is not a mapping (line %d)", mapping.Line)
		}
		for i := 0; i+1 < len(mapping.Content); i += 2 {
			keyNode := mapping.Content[i]
			valNode := mapping.Content[i+1]
			var value any
			if valNode.Kind == yaml.ScalarNode && valNode.Tag == "!!timestamp" {
				// Bare dates like 2026-08-23 stay strings, not time.Time.
				value = valNode.Value
			} else if err := valNode.Decode(&value); err != nil {
				return nil, "", fmt.Errorf("failed to decode header field %q: %w", keyNode.Value, err)
			}
			fields.Set(keyNode.Value, value)
		}
	}

	body = strings.TrimPrefix(body, "\n")
	return fields, body, nil
}

// Encode renders fields and body back into document text. Empty fields
// produce the bare body with no fence.
func Encode(fields *Fields, body string) (string, error) {
	if fields == nil || fields.Len() == 0 {
		return body, nil
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range fields.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
		valNode := &yaml.Node{}
		if fields.values[key] == nil {
			valNode.Kind = yaml.ScalarNode
			valNode.Tag = "!!null"
			valNode.Value = "null"
		} else if err := valNode.Encode(fields.values[key]); err != nil {
			return "", fmt.Errorf("failed to encode header field %q: %w", key, err)
		}
		mapping.Content = append(mapping.Content, keyNode, valNode)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return "", fmt.Errorf("failed to encode header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode header: %w", err)
	}

	var out strings.Builder
	out.WriteString(delimiter)
	out.WriteString("\n")
	out.Write(buf.Bytes())
	out.WriteString(delimiter)
	out.WriteString("\n\n")
	out.WriteString(body)
	return out.String(), nil
}
