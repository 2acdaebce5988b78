package openassets

import (
	"bytes"

	"github.com/tokenized/openassets/bitcoin"
)

// MatchMarkerScript recognizes the Open Assets marker output pattern: OP_RETURN followed by
// exactly one pushdata and nothing else. An OP_0 in the pushdata position counts as an empty
// push. It returns the pushdata payload and true on a match, or nil and false for anything else,
// including malformed scripts.
func MatchMarkerScript(script []byte) ([]byte, bool) {
	buf := bytes.NewReader(script)

	opCodeItem, err := bitcoin.ParseScript(buf)
	if err != nil {
		return nil, false
	}
	if opCodeItem.Type != bitcoin.ScriptItemTypeOpCode || opCodeItem.OpCode != bitcoin.OP_RETURN {
		return nil, false
	}

	pushItem, err := bitcoin.ParseScript(buf)
	if err != nil {
		return nil, false
	}
	isEmptyPush := pushItem.Type == bitcoin.ScriptItemTypeOpCode && pushItem.OpCode == bitcoin.OP_0
	if pushItem.Type != bitcoin.ScriptItemTypePushData && !isEmptyPush {
		return nil, false
	}

	if buf.Len() != 0 {
		return nil, false // trailing opcode after the pushdata
	}

	return pushItem.Data, true
}

// BuildMarkerScript produces the canonical marker output script: OP_RETURN followed by a minimal
// pushdata encoding of payload.
func BuildMarkerScript(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := buf.WriteByte(bitcoin.OP_RETURN); err != nil {
		return nil, err
	}
	if err := bitcoin.WritePushDataScript(&buf, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
