package api

import (
	"encoding/json"
	"fmt"

	"blade-arena/internal/game"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is a wire encoding of BroadcastState.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat maps a query value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// ContentType is the HTTP content type of the format.
func (f Format) ContentType() string {
	if f == FormatMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// EncodeState serializes a state. Both formats use the short keys of the
// DTO tags and keep float64 precision.
func EncodeState(f Format, state game.BroadcastState) ([]byte, error) {
	if f == FormatMsgpack {
		return msgpack.Marshal(&state)
	}
	return json.Marshal(state)
}

// DecodeState is the inverse of EncodeState.
func DecodeState(f Format, data []byte) (game.BroadcastState, error) {
	var state game.BroadcastState
	var err error
	if f == FormatMsgpack {
		err = msgpack.Unmarshal(data, &state)
	} else {
		err = json.Unmarshal(data, &state)
	}
	return state, err
}
