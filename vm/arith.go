package vm

// Typed arithmetic is modeled as a small dispatch table
// keyed on opcode, each entry a compile-time generic instantiated for
// one width/signedness, the same shape as gvm's numeric32 constraint,
// generalized from a single 32-bit register family to every width the
// instruction set defines.
//
// Every entry takes (b, a): b was pushed first, a is the popped top,
// and returns the 64-bit bit pattern to push back.
var arithOps = map[Opcode]func(b, a uint64) uint64{
	OpUadd8:  addUnsigned[uint8],
	OpUsub8:  subUnsigned[uint8],
	OpUadd16: addUnsigned[uint16],
	OpUsub16: subUnsigned[uint16],
	OpUadd32: addUnsigned[uint32],
	OpUsub32: subUnsigned[uint32],
	OpUadd64: addUnsigned[uint64],
	OpUsub64: subUnsigned[uint64],

	OpAdd8:  addSigned[int8],
	OpSub8:  subSigned[int8],
	OpAdd16: addSigned[int16],
	OpSub16: subSigned[int16],
	OpAdd32: addSigned[int32],
	OpSub32: subSigned[int32],
	OpAdd64: addSigned[int64],
	OpSub64: subSigned[int64],

	OpAddf64: addFloat64,
	OpSubf64: subFloat64,
	OpAddf32: addFloat32,
	OpSubf32: subFloat32,
}

type unsignedWidth interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

type signedWidth interface {
	~int8 | ~int16 | ~int32 | ~int64
}

// addUnsigned/subUnsigned truncate both operands to T, compute in T
// (wrapping at T's width), and zero-extend the result back to 64 bits.
func addUnsigned[T unsignedWidth](b, a uint64) uint64 { return uint64(T(b) + T(a)) }
func subUnsigned[T unsignedWidth](b, a uint64) uint64 { return uint64(T(b) - T(a)) }

// addSigned/subSigned do the same but re-extend the result with its
// sign rather than zeros, the only difference Add8 vs Uadd8 and their
// kin actually make once the bit pattern is identical either way.
func addSigned[T signedWidth](b, a uint64) uint64 { return uint64(int64(T(b) + T(a))) }
func subSigned[T signedWidth](b, a uint64) uint64 { return uint64(int64(T(b) - T(a))) }

func addFloat64(b, a uint64) uint64 {
	return float64Bits(bitsFloat64(b) + bitsFloat64(a))
}

func subFloat64(b, a uint64) uint64 {
	return float64Bits(bitsFloat64(b) - bitsFloat64(a))
}

func addFloat32(b, a uint64) uint64 {
	return uint64(float32Bits(bitsFloat32(uint32(b)) + bitsFloat32(uint32(a))))
}

func subFloat32(b, a uint64) uint64 {
	return uint64(float32Bits(bitsFloat32(uint32(b)) - bitsFloat32(uint32(a))))
}
