package volumio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Engine.IO v3 packet types.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineNoop    = '6'
)

// Socket.IO packet types carried inside an engine message.
const (
	socketConnect    = '0'
	socketDisconnect = '1'
	socketEvent      = '2'
	socketAck        = '3'
	socketError      = '4'
)

var errEmptyFrame = errors.New("empty frame")

// Frame is one websocket text message split into its Engine.IO and
// Socket.IO headers.
type Frame struct {
	Engine byte
	Socket byte // zero unless Engine is a message
	Data   []byte
}

// Handshake is the payload of the Engine.IO open packet.
type Handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

func ParseFrame(msg []byte) (Frame, error) {
	if len(msg) == 0 {
		return Frame{}, errEmptyFrame
	}
	f := Frame{Engine: msg[0], Data: msg[1:]}
	switch f.Engine {
	case engineOpen, engineClose, enginePing, enginePong, engineNoop:
	case engineMessage:
		if len(f.Data) == 0 {
			return Frame{}, fmt.Errorf("message frame without socket type")
		}
		f.Socket = f.Data[0]
		f.Data = f.Data[1:]
	default:
		return Frame{}, fmt.Errorf("unknown engine packet type %q", f.Engine)
	}
	return f, nil
}

// EncodeEvent builds `42["name",arg]`.
func EncodeEvent(name string, arg any) ([]byte, error) {
	payload := []any{name}
	if arg != nil {
		payload = append(payload, arg)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", name, err)
	}
	return append([]byte{engineMessage, socketEvent}, data...), nil
}

// DecodeEvent splits an event payload into its name and raw arguments. An
// optional namespace ("/nsp,") and ack id prefix are skipped.
func DecodeEvent(data []byte) (string, []json.RawMessage, error) {
	if len(data) > 0 && data[0] == '/' {
		i := bytes.IndexByte(data, ',')
		if i < 0 {
			return "", nil, fmt.Errorf("namespace without separator")
		}
		data = data[i+1:]
	}
	for len(data) > 0 && data[0] >= '0' && data[0] <= '9' {
		data = data[1:]
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("event without name")
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("decode event name: %w", err)
	}
	return name, parts[1:], nil
}

// decodeObject decodes a JSON object keeping numbers as json.Number.
func decodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}
