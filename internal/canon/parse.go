// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Parse decodes raw JSON bytes into a Value tree, preserving object
// member order and duplicate keys exactly as they appear on the wire.
// Unlike encoding/json's default map decoding, Parse never silently
// collapses a duplicate key — that decision is left to Canonicalize,
// which is the single place the DuplicateKey rule is enforced.
//
// Numbers without a fractional part or exponent decode as KindInt if
// they fit an int64; otherwise (including any number with '.', 'e',
// or 'E') they decode as KindFloat. This mirrors formatFloat's
// encoding convention so that Canonicalize(Parse(Canonicalize(v)))
// reproduces the same bytes as Canonicalize(v).
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}

	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("canon: trailing data after top-level value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return decodeNumber(t)
	case json.Delim:
		switch t {
		case '[':
			return decodeArray(dec)
		case '{':
			return decodeObject(dec)
		default:
			return Value{}, fmt.Errorf("canon: unexpected delimiter %q", t)
		}
	default:
		return Value{}, fmt.Errorf("canon: unexpected token %T", tok)
	}
}

func decodeNumber(n json.Number) (Value, error) {
	s := n.String()
	if !hasFractionOrExponent(s) {
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("canon: invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

func hasFractionOrExponent(s string) bool {
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			return true
		}
	}
	return false
}

func decodeArray(dec *json.Decoder) (Value, error) {
	var items []Value
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return Value{}, err
	}
	return Value{Kind: KindArray, Arr: items}, nil
}

func decodeObject(dec *json.Decoder) (Value, error) {
	var members []Member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Value{}, fmt.Errorf("canon: object key is not a string: %v", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		members = append(members, Member{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return Value{}, err
	}
	return Value{Kind: KindObject, Obj: members}, nil
}
