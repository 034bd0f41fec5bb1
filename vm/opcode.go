package vm

/*
	ssmvm is a stack machine: every value on the operand stack is a raw
	64-bit word. There is no register file and no notion of type at rest;
	an opcode decides how to reinterpret the bits it pops.

	Bytecodes (<> required immediate, everything else ignores its immediate)

		push <v>   (push v)
		pop        (discard top)

		uadd8, usub8, uadd16, usub16, uadd32, usub32, uadd64, usub64
		add8, sub8, add16, sub16, add32, sub32, add64, sub64
		addf64, subf64, addf32, subf32
			pop a then b (a is the top of stack); push b <op> a, reinterpreted
			at the named width/signedness and re-extended to 64 bits.

		prt        (peek top; print its low 32 bits as a Unicode scalar)
		inc        (pop v; push v+1; fails on u64 overflow)
		dup        (pop v; push v, v)
		swap <k>   (exchange the top of stack with the word k slots below it)

		jmp <addr> (unconditional jump)
		jmpp       (pop addr; jump)
		jeq <addr> (pop v; jump if v == 0)
		jnz <addr> (pop v; jump if v != 0)
		cmp        (pop a, pop b; push b - a, two's-complement wrapping)

		call <addr> (save sp and the return pc on the call stack; jump to addr)
		ret         (pop r; restore sp and pc from the call stack; push r; jump)

		halt       (stop execution)
		int        (pop n; n == 0 halts, any other value is a reserved no-op)

	The opcode ordering below is part of the binary ABI: it is the byte
	written to and read from .bin files, so it must never be reordered or
	have a member inserted ahead of Err.
*/

// Opcode is the single byte tag at the head of every ByteCode record.
type Opcode uint8

const (
	OpPush Opcode = iota
	OpPop
	OpUadd8
	OpUsub8
	OpUadd16
	OpUsub16
	OpUadd32
	OpUsub32
	OpUadd64
	OpUsub64
	OpAdd8
	OpSub8
	OpAdd16
	OpSub16
	OpAdd32
	OpSub32
	OpAdd64
	OpSub64
	OpAddf64
	OpSubf64
	OpAddf32
	OpSubf32
	OpPrt
	OpInc
	OpDup
	OpJmp
	OpCall
	OpJmpp
	OpHalt
	OpRet
	OpSwap
	OpJeq
	OpJnz
	OpCmp
	OpInt

	// Lexer-internal kinds. Never emitted to bytecode; OpErr is the
	// sentinel boundary used by Opcode.Valid.
	OpValue
	OpLabel
	OpName
	OpErr
)

var mnemonicToOpcode = map[string]Opcode{
	"push":  OpPush,
	"pop":   OpPop,
	"uadd8": OpUadd8, "usub8": OpUsub8,
	"uadd16": OpUadd16, "usub16": OpUsub16,
	"uadd32": OpUadd32, "usub32": OpUsub32,
	"uadd64": OpUadd64, "usub64": OpUsub64,
	"add8": OpAdd8, "sub8": OpSub8,
	"add16": OpAdd16, "sub16": OpSub16,
	"add32": OpAdd32, "sub32": OpSub32,
	"add64": OpAdd64, "sub64": OpSub64,
	"addf64": OpAddf64, "subf64": OpSubf64,
	"addf32": OpAddf32, "subf32": OpSubf32,
	"prt":  OpPrt,
	"inc":  OpInc,
	"dup":  OpDup,
	"jmp":  OpJmp,
	"call": OpCall,
	"jmpp": OpJmpp,
	"halt": OpHalt,
	"ret":  OpRet,
	"swap": OpSwap,
	"jeq":  OpJeq,
	"jnz":  OpJnz,
	"cmp":  OpCmp,
	"int":  OpInt,
}

// opcodeToMnemonic is built once from mnemonicToOpcode so the two can
// never drift out of sync.
var opcodeToMnemonic map[Opcode]string

func init() {
	opcodeToMnemonic = make(map[Opcode]string, len(mnemonicToOpcode))
	for s, op := range mnemonicToOpcode {
		opcodeToMnemonic[op] = s
	}
}

// String renders an opcode as its source mnemonic, or a bracketed tag
// for the lexer-internal kinds that never reach the assembler output.
func (op Opcode) String() string {
	if s, ok := opcodeToMnemonic[op]; ok {
		return s
	}
	switch op {
	case OpValue:
		return "<value>"
	case OpLabel:
		return "<label>"
	case OpName:
		return "<name>"
	default:
		return "<err>"
	}
}

// Valid reports whether op is a real, emittable bytecode opcode:
// anything at or past OpErr's ordinal is the error sentinel range.
func (op Opcode) Valid() bool {
	return op < OpErr
}

// TakesImmediate reports whether the assembler must consume the next
// token as this opcode's operand. Jmpp takes its target off the stack,
// not the immediate, so it is excluded despite being a jump.
func (op Opcode) TakesImmediate() bool {
	switch op {
	case OpPush, OpJmp, OpCall, OpJeq, OpJnz, OpSwap:
		return true
	default:
		return false
	}
}
