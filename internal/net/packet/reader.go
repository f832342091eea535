package packet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is returned for a line that is not a JSON object with a
// string command field.
var ErrMalformed = errors.New("malformed request")

// Request is one decoded client line: {"command": "...", "payload": {...}}.
type Request struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses one line. The command is upper-cased; a missing or
// non-object payload decodes as empty.
func Decode(line []byte) (*Request, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return nil, ErrMalformed
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var cmd string
	if err := json.Unmarshal(raw["command"], &cmd); err != nil {
		return nil, fmt.Errorf("%w: command is not a string", ErrMalformed)
	}
	cmd = strings.ToUpper(strings.TrimSpace(cmd))
	if cmd == "" {
		return nil, fmt.Errorf("%w: empty command", ErrMalformed)
	}
	return &Request{Command: cmd, Payload: raw["payload"]}, nil
}

// Reader gives typed, forgiving access to a request payload. Missing or
// mistyped fields read as zero values, numbers may arrive as strings and
// integers may arrive as floats.
type Reader struct {
	req    *Request
	fields map[string]any
}

// NewReader wraps req. A payload that is not a JSON object reads as empty.
func NewReader(req *Request) *Reader {
	r := &Reader{req: req, fields: map[string]any{}}
	if len(req.Payload) > 0 {
		var m map[string]any
		if err := json.Unmarshal(req.Payload, &m); err == nil && m != nil {
			r.fields = m
		}
	}
	return r
}

// Command returns the upper-cased command name.
func (r *Reader) Command() string {
	return r.req.Command
}

// Has reports whether the payload carries key.
func (r *Reader) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// String reads a trimmed string field. Numbers are formatted.
func (r *Reader) String(key string) string {
	switch v := r.fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Int reads an integer field, truncating floats and parsing numeric strings.
func (r *Reader) Int(key string) int {
	f, ok := r.number(key)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// Float reads a number field. ok is false when the field is missing or not
// numeric.
func (r *Reader) Float(key string) (float64, bool) {
	return r.number(key)
}

func (r *Reader) number(key string) (float64, bool) {
	switch v := r.fields[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
