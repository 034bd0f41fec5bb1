package vm

import "math"

// Every value on the operand stack is a raw 64-bit word (a Word). These
// helpers convert between a Word's bit pattern and the various widths
// and representations an opcode might reinterpret it as, the same
// shape as gvm's uint32FromBytes/uint32ToBytes pair, generalized from
// 32 bits to 64 and from a byte slice to a plain register.
type Word = uint64

func float64Bits(f float64) uint64 { return math.Float64bits(f) }
func bitsFloat64(v uint64) float64 { return math.Float64frombits(v) }

func float32Bits(f float32) uint32 { return math.Float32bits(f) }
func bitsFloat32(v uint32) float32 { return math.Float32frombits(v) }
