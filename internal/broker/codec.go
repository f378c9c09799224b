package broker

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/youmna-rabie/incident-relay/internal/config"
)

// Codec frames an event name and its payload for the wire.
type Codec interface {
	Encode(event string, data []byte) ([]byte, error)
	Decode(frame []byte) (event string, data []byte, err error)
}

// NewCodec returns the codec registered under name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", config.CodecJSON:
		return JSONCodec{}, nil
	case config.CodecMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

type jsonFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JSONCodec frames messages as {"event": ..., "data": <payload>}. The payload
// must itself be JSON.
type JSONCodec struct{}

func (JSONCodec) Encode(event string, data []byte) ([]byte, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("encoding %s frame: payload is not valid JSON", event)
	}
	return json.Marshal(jsonFrame{Event: event, Data: data})
}

func (JSONCodec) Decode(frame []byte) (string, []byte, error) {
	var f jsonFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return "", nil, fmt.Errorf("decoding json frame: %w", err)
	}
	return f.Event, f.Data, nil
}

type msgpackFrame struct {
	Event string `msgpack:"event"`
	Data  []byte `msgpack:"data"`
}

// MsgpackCodec frames messages as a MessagePack map with the payload carried
// as opaque bytes.
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(event string, data []byte) ([]byte, error) {
	b, err := msgpack.Marshal(&msgpackFrame{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encoding msgpack frame: %w", err)
	}
	return b, nil
}

func (MsgpackCodec) Decode(frame []byte) (string, []byte, error) {
	var f msgpackFrame
	if err := msgpack.Unmarshal(frame, &f); err != nil {
		return "", nil, fmt.Errorf("decoding msgpack frame: %w", err)
	}
	return f.Event, f.Data, nil
}
