package openassets

import (
	"bytes"
	"testing"

	"github.com/tokenized/openassets/bitcoin"
)

func TestMarkerScriptRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		{},
		{0x01},
		bytes.Repeat([]byte{0xab}, 75),  // direct push
		bytes.Repeat([]byte{0xcd}, 300), // OP_PUSHDATA2
	}

	for _, payload := range payloads {
		script, err := BuildMarkerScript(payload)
		if err != nil {
			t.Fatalf("Failed to build marker script : %s", err)
		}

		data, ok := MatchMarkerScript(script)
		if !ok {
			t.Fatalf("Failed to match built marker script")
		}

		if !bytes.Equal(data, payload) {
			t.Errorf("Wrong payload : got %x, want %x", data, payload)
		}
	}
}

func TestMarkerScriptNoMatch(t *testing.T) {
	tests := []struct {
		name   string
		script []byte
	}{
		{
			name:   "not op return",
			script: []byte{bitcoin.OP_DUP, 0x01, 0xff},
		},
		{
			name:   "op return with no push",
			script: []byte{bitcoin.OP_RETURN},
		},
		{
			name:   "op return with trailing opcode",
			script: []byte{bitcoin.OP_RETURN, 0x01, 0xff, bitcoin.OP_DUP},
		},
		{
			name:   "op return followed by non push opcode",
			script: []byte{bitcoin.OP_RETURN, bitcoin.OP_DUP},
		},
		{
			name:   "empty script",
			script: []byte{},
		},
		{
			name:   "truncated pushdata1 length",
			script: []byte{bitcoin.OP_RETURN, bitcoin.OP_PUSH_DATA_1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := MatchMarkerScript(tt.script); ok {
				t.Errorf("Expected no match for %s", tt.name)
			}
		})
	}
}
