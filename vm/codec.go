package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// recordSize is the fixed width of one ByteCode record on disk:
// 1 opcode byte followed by 8 little-endian value bytes.
const recordSize = 9

// ByteCode is one instruction: a tag plus a 64-bit immediate. Every
// instruction occupies exactly one record regardless of whether its
// opcode consumes the immediate: unused immediates are zero.
type ByteCode struct {
	Op    Opcode
	Value uint64
}

func (b ByteCode) String() string {
	if !b.Op.TakesImmediate() {
		return b.Op.String()
	}
	return fmt.Sprintf("%s %d", b.Op, b.Value)
}

// Program is an assembled, ready-to-run instruction stream. The index
// of a record is its address for every jump and call target.
type Program []ByteCode

// WriteBin serializes prog to path as [count u64][record]*: an
// 8-byte little-endian count prefix, then count 9-byte records, no
// magic number, no version, no padding.
func WriteBin(path string, prog Program) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err = writeBin(f, prog); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeBin(w io.Writer, prog Program) error {
	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(prog)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	var rec [recordSize]byte
	for _, bc := range prog {
		rec[0] = byte(bc.Op)
		binary.LittleEndian.PutUint64(rec[1:], bc.Value)
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadBin reads a bytecode file written by WriteBin. A short read at
// any point, including a truncated header, is ErrTruncated.
func ReadBin(path string) (Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	prog, err := readBin(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return prog, nil
}

func readBin(r io.Reader) (Program, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	count := binary.LittleEndian.Uint64(header[:])

	prog := make(Program, 0, count)
	var rec [recordSize]byte
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrTruncated, i, err)
		}
		prog = append(prog, ByteCode{
			Op:    Opcode(rec[0]),
			Value: binary.LittleEndian.Uint64(rec[1:]),
		})
	}
	return prog, nil
}
