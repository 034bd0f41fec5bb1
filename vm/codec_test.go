package vm

import (
	"bytes"
	"errors"
	"testing"
)

func TestOpcodeRoundTripMnemonic(t *testing.T) {
	for mnemonic, op := range mnemonicToOpcode {
		assert(t, op.String() == mnemonic, "opcode %d: String() = %q, want %q", op, op.String(), mnemonic)
	}
}

func TestByteCodeStringOmitsUnusedImmediate(t *testing.T) {
	bc := ByteCode{Op: OpHalt, Value: 123}
	assert(t, bc.String() == "halt", "expected halt to hide its unused immediate, got %q", bc.String())

	bc = ByteCode{Op: OpPush, Value: 5}
	assert(t, bc.String() == "push 5", "got %q", bc.String())
}

func TestReadBinTruncated(t *testing.T) {
	_, err := readBin(bytes.NewReader([]byte{1, 2, 3}))
	assert(t, errors.Is(err, ErrTruncated), "expected ErrTruncated, got %v", err)
}

func TestReadBinTruncatedRecord(t *testing.T) {
	var buf bytes.Buffer
	prog := Program{{Op: OpHalt}}
	assert(t, writeBin(&buf, prog) == nil, "writeBin failed")

	truncated := buf.Bytes()[:buf.Len()-1]
	_, err := readBin(bytes.NewReader(truncated))
	assert(t, errors.Is(err, ErrTruncated), "expected ErrTruncated, got %v", err)
}
