//go:build amd64 && unix

package vm

import "fmt"

// callNative invokes the native code at codeAddr, passing the one
// argument in rax rather than on the real stack, so CALL's own
// return-address push is never mistaken for it. The jitted code's
// closing "pop rax; ret" leaves the result in rax and the stack
// balanced for the trampoline to hand the result back. Implemented in
// jit_call_amd64.s.
func callNative(codeAddr uintptr, arg uint64) uint64

// compileProcedure translates body, a contiguous ByteCode slice from
// a procedure's entry through its terminating Ret, whose first
// instruction lives at absolute program index entry, into native
// amd64 code and installs it in executable memory. Every compiled
// procedure opens with a "push rax" prologue that seeds its one
// incoming argument (passed in rax, see callNative) onto the working
// stack, above the return address CALL already pushed.
//
// The lowering subset extends past the minimum required table (Push,
// Pop, Uadd64, Swap, Ret) to also cover Usub64, the signed 64-bit
// family, Dup, Cmp, the jump family via intra-procedure relocation,
// and Call to a procedure that is already compiled. Inc is never
// lowered natively: its overflow check can only fail mid-procedure,
// and this backend has no way to surface a runtime fault back through
// a plain (arg) -> result native call, so a procedure containing Inc
// bails to ErrUnsupportedInJit and stays interpreted. Any other
// unlisted opcode, a jump that escapes the procedure body, or a call
// to a procedure that is not yet compiled bails the same way and
// installs nothing.
func compileProcedure(entry uint64, body Program, jitTable map[uint64]*compiledProc) (*compiledProc, error) {
	c := &amd64Encoder{entry: entry, body: body, jitTable: jitTable}
	if err := c.encode(); err != nil {
		return nil, err
	}

	region, err := newExecRegion(c.code)
	if err != nil {
		return nil, err
	}

	addr := region.addr
	return &compiledProc{
		region: region,
		call:   func(arg uint64) uint64 { return callNative(addr, arg) },
	}, nil
}

type relocation struct {
	patchAt   int    // offset of the rel32 field to patch
	targetIdx uint64 // absolute program instruction index being jumped to
}

type amd64Encoder struct {
	entry    uint64
	body     Program
	jitTable map[uint64]*compiledProc

	code        []byte
	instrOffset []int // byte offset of body[i], indexed by i
	relocs      []relocation
}

func (c *amd64Encoder) encode() error {
	if len(c.body) == 0 || c.body[len(c.body)-1].Op != OpRet {
		return fmt.Errorf("%w: procedure body must end in ret", ErrUnsupportedInJit)
	}

	c.instrOffset = make([]int, len(c.body))

	// The incoming argument arrives in rax (see callNative); push it
	// onto the working stack before any body instruction runs so every
	// popRAX/pushRAX in the table below sees a real operand, not the
	// return address CALL just pushed.
	c.pushRAX()

	for i, instr := range c.body {
		c.instrOffset[i] = len(c.code)
		if err := c.emit(instr); err != nil {
			return err
		}
	}

	for _, r := range c.relocs {
		targetOffset, ok := c.offsetOf(r.targetIdx)
		if !ok {
			return fmt.Errorf("%w: jump target outside compiled body", ErrUnsupportedInJit)
		}
		rel := int32(targetOffset - (r.patchAt + 4))
		putInt32(c.code[r.patchAt:], rel)
	}

	return nil
}

// offsetOf maps an absolute program instruction index back to a byte
// offset in c.code, valid only for indices inside this procedure body.
func (c *amd64Encoder) offsetOf(absoluteIdx uint64) (int, bool) {
	if absoluteIdx < c.entry || absoluteIdx >= c.entry+uint64(len(c.body)) {
		return 0, false
	}
	return c.instrOffset[absoluteIdx-c.entry], true
}

func (c *amd64Encoder) emit(instr ByteCode) error {
	switch instr.Op {
	case OpPush:
		c.movImm64RAX(instr.Value)
		c.pushRAX()
	case OpPop:
		c.popRCX()
	case OpDup:
		c.popRAX()
		c.pushRAX()
		c.pushRAX()
	case OpUadd64, OpAdd64:
		c.popRBX()
		c.popRAX()
		c.addRAXRBX()
		c.pushRAX()
	case OpUsub64, OpSub64:
		c.popRAX() // a (top)
		c.popRBX() // b
		c.subRBXRAX()
		c.pushRBX()
	case OpCmp:
		c.popRAX() // a
		c.popRBX() // b
		c.subRBXRAX()
		c.pushRBX()
	case OpSwap:
		c.swap(instr.Value)
	case OpJmp:
		c.jmpRel32(instr.Value)
	case OpJeq:
		c.popRAX()
		c.testRAXRAX()
		c.jccRel32(0x84, instr.Value) // JE
	case OpJnz:
		c.popRAX()
		c.testRAXRAX()
		c.jccRel32(0x85, instr.Value) // JNE
	case OpCall:
		proc, ok := c.jitTable[instr.Value]
		if !ok {
			return fmt.Errorf("%w: call target not yet compiled", ErrUnsupportedInJit)
		}
		c.popRAX() // load the single argument into the calling convention's register
		c.callAbs(proc.region.addr)
		c.pushRAX() // the callee's result, left in rax, rejoins our own stack
	case OpRet:
		c.popRAX()
		c.ret()
	default:
		return fmt.Errorf("%w: opcode %s", ErrUnsupportedInJit, instr.Op)
	}
	return nil
}
