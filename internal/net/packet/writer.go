package packet

import "encoding/json"

// Response is one server line: {"command": "...", "payload": ...}.
type Response struct {
	Command string `json:"command"`
	Payload any    `json:"payload"`
}

// Encode marshals a response line, newline included.
func Encode(command string, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	b, err := json.Marshal(Response{Command: command, Payload: payload})
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Reason is the common {"reason": ...} payload of rejections.
type Reason struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}
