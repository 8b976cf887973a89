package hooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	typeKey  = "$type"
	valueKey = "$value"

	// keyEscape prefixes "$" keys of plain maps so they never read back
	// as tagged nodes. "$x" is written as "$$x".
	keyEscape = "$"

	// maxDepth bounds nesting in Marshal and Unmarshal.
	maxDepth = 64
)

// ErrUnknownType is wrapped by DecodeError when no codec is registered for a tag.
var ErrUnknownType = errors.New("no decoder registered for type")

// DecodeError reports a failed decode.
type DecodeError struct {
	Tag string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %q: %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Transport is an immutable codec registry keyed by type tag.
type Transport struct {
	codecs map[string]Codec
	tags   []string
}

// NewTransport copies codecs into a transport.
func NewTransport(codecs map[string]Codec) *Transport {
	t := &Transport{codecs: make(map[string]Codec, len(codecs))}
	for tag, c := range codecs {
		t.codecs[tag] = c
		t.tags = append(t.tags, tag)
	}
	sort.Strings(t.tags)
	return t
}

// Tags returns the registered tags in sorted order.
func (t *Transport) Tags() []string {
	return append([]string(nil), t.tags...)
}

// Decode rebuilds a value with the codec registered for tag. An unknown
// tag or a failing decoder yields a *DecodeError; values are never passed
// through undecoded.
func (t *Transport) Decode(tag string, v any) (any, error) {
	c, ok := t.codecs[tag]
	if !ok || c.Decode == nil {
		return nil, &DecodeError{Tag: tag, Err: ErrUnknownType}
	}
	out, err := c.Decode(v)
	if err != nil {
		return nil, &DecodeError{Tag: tag, Err: err}
	}
	return out, nil
}

// Encode finds the first codec, in tag order, that accepts v.
func (t *Transport) Encode(v any) (tag string, encoded any, ok bool) {
	for _, tag := range t.tags {
		c := t.codecs[tag]
		if c.Encode == nil {
			continue
		}
		if enc, ok := c.Encode(v); ok {
			return tag, enc, true
		}
	}
	return "", nil, false
}

// Marshal encodes a value tree as JSON. Values accepted by a codec become
// {"$type": tag, "$value": encoded}; maps and slices are walked. Map keys
// starting with "$" gain one more "$", which Unmarshal removes.
func (t *Transport) Marshal(v any) ([]byte, error) {
	tree, err := t.encodeTree(v, 0)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

func (t *Transport) encodeTree(v any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("value nested deeper than %d levels", maxDepth)
	}

	if tag, enc, ok := t.Encode(v); ok {
		inner, err := t.encodeTree(enc, depth+1)
		if err != nil {
			return nil, err
		}
		return map[string]any{typeKey: tag, valueKey: inner}, nil
	}

	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			enc, err := t.encodeTree(item, depth+1)
			if err != nil {
				return nil, err
			}
			if strings.HasPrefix(k, keyEscape) {
				k = keyEscape + k
			}
			out[k] = enc
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			enc, err := t.encodeTree(item, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	default:
		return v, nil
	}
}

// Unmarshal decodes JSON produced by Marshal. Numbers decode as
// json.Number. Tagged nodes are decoded innermost first.
func (t *Transport) Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("parsing transport payload: %w", err)
	}
	return t.decodeTree(tree, 0)
}

func (t *Transport) decodeTree(v any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("value nested deeper than %d levels", maxDepth)
	}

	switch v := v.(type) {
	case map[string]any:
		if tag, inner, ok := tagged(v); ok {
			value, err := t.decodeTree(inner, depth+1)
			if err != nil {
				return nil, err
			}
			return t.Decode(tag, value)
		}
		out := make(map[string]any, len(v))
		for k, item := range v {
			dec, err := t.decodeTree(item, depth+1)
			if err != nil {
				return nil, err
			}
			if strings.HasPrefix(k, keyEscape+keyEscape) {
				k = k[len(keyEscape):]
			}
			out[k] = dec
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			dec, err := t.decodeTree(item, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	default:
		return v, nil
	}
}

func tagged(m map[string]any) (string, any, bool) {
	if len(m) != 2 {
		return "", nil, false
	}
	tag, ok := m[typeKey].(string)
	if !ok {
		return "", nil, false
	}
	inner, ok := m[valueKey]
	return tag, inner, ok
}
