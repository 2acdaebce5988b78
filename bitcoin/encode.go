package bitcoin

import (
	"encoding/base64"
	"io"

	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
)

var (
	ErrCheckHashInvalid = errors.New("Check Hash Invalid")
	ErrInvalidVersion   = errors.New("Invalid Version")
)

// Base64 returns the Bas64 encoding of the input.
//
// See https://en.wikipedia.org/wiki/Base64
func Base64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Base64Decode returns base 64 decodes the argument and returns the result.
func Base64Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Base58 return the Base58 encoding of the input.
//
// See https://en.wikipedia.org/wiki/Base58
func Base58(b []byte) string {
	return base58.Encode(b)
}

// Base58Decode returns base 58 decodes the argument and returns the result.
func Base58Decode(s string) []byte {
	return base58.Decode(s)
}

// ReadBase128VarInt reads an unsigned LEB128 value: 7 value bits per byte, low
// byte first, with the high bit of each byte set on every byte but the last.
func ReadBase128VarInt(r io.Reader) (uint64, error) {
	value := uint64(0)
	done := false
	bitOffset := uint64(0)
	for !done {
		var subValue [1]byte
		if _, err := io.ReadFull(r, subValue[:]); err != nil {
			return value, err
		}

		done = (subValue[0] & 0x80) == 0 // High bit not set
		subValue[0] = subValue[0] & 0x7f // Remove high bit

		value += uint64(subValue[0]) << bitOffset
		bitOffset += 7
	}

	return value, nil
}

const bitLeast7EmptyMask = 0xffffffffffffff80
const bit8thMask = 0x80
const bitLeast7Mask = 0x0000007f

// WriteBase128VarInt writes value as an unsigned LEB128 value.
func WriteBase128VarInt(w io.Writer, value uint64) error {
	for {
		if value&bitLeast7EmptyMask == 0 {
			b := []byte{byte(value)}
			_, err := w.Write(b)
			return err
		}

		subValue := []byte{(byte(value&bitLeast7Mask) | bit8thMask)} // Get last 7 bits and set high bit
		if _, err := w.Write(subValue); err != nil {
			return err
		}
		value = value >> 7
	}
}

func ReadBase128VarSignedInt(r io.Reader) (int64, error) {
	result, err := ReadBase128VarInt(r)
	return int64(result), err
}

func WriteBase128VarSignedInt(w io.Writer, value int64) error {
	return WriteBase128VarInt(w, uint64(value))
}
