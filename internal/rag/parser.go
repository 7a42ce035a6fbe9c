// Package rag wires the knowledge pipeline: parsing source files, indexing
// them as passages, and retrieving passages for a query.
package rag

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/edvisor-fi/edvisor/internal/knowledge"
)

// ErrInvalidSource indicates a source file that could not be parsed.
var ErrInvalidSource = errors.New("invalid source file")

// ParseJSON reads a JSON object into an ordered field list. encoding/json
// maps lose key order, and passage ids depend on field order being stable,
// so this walks the token stream instead of unmarshalling into a map.
func ParseJSON(r io.Reader) ([]knowledge.Field, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: top-level value must be an object", ErrInvalidSource)
	}

	fields, err := parseObject(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing content after object", ErrInvalidSource)
	}
	return fields, nil
}

// parseObject consumes tokens up to and including the closing '}'.
func parseObject(dec *json.Decoder) ([]knowledge.Field, error) {
	var fields []knowledge.Field
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		if delim, ok := tok.(json.Delim); ok && delim == '}' {
			return fields, nil
		}

		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object key is not a string", ErrInvalidSource)
		}
		value, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		fields = append(fields, knowledge.Field{Key: key, Value: value})
	}
}

func parseValue(dec *json.Decoder) (knowledge.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return knowledge.Value{}, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			fields, err := parseObject(dec)
			if err != nil {
				return knowledge.Value{}, err
			}
			return knowledge.MapValue(fields), nil
		case '[':
			return parseArray(dec)
		default:
			return knowledge.Value{}, fmt.Errorf("%w: unexpected %q", ErrInvalidSource, v.String())
		}
	case string:
		return knowledge.ScalarValue(v), nil
	case json.Number:
		return knowledge.ScalarValue(v.String()), nil
	case bool:
		return knowledge.ScalarValue(strconv.FormatBool(v)), nil
	case nil:
		return knowledge.ScalarValue(""), nil
	default:
		return knowledge.Value{}, fmt.Errorf("%w: unsupported token %v", ErrInvalidSource, tok)
	}
}

// parseArray consumes tokens up to and including the closing ']'.
func parseArray(dec *json.Decoder) (knowledge.Value, error) {
	var items []knowledge.Value
	for {
		if !dec.More() {
			if _, err := dec.Token(); err != nil { // consume ']'
				return knowledge.Value{}, fmt.Errorf("%w: %v", ErrInvalidSource, err)
			}
			return knowledge.ListValue(items), nil
		}
		item, err := parseValue(dec)
		if err != nil {
			return knowledge.Value{}, err
		}
		items = append(items, item)
	}
}
