package vm

import (
	"fmt"
	"math"
	"os"
	"unicode/utf8"
)

// stackCapacity is the compile-time operand stack size (the suggested
// default). Kept as a fixed array embedded in VM rather than a slice,
// matching gvm's embedded [stackSize]byte register file.
const stackCapacity = 524288

// frame is the activation record pushed by Call and consumed by Ret.
// It lives on a dedicated call stack rather than the operand stack: a
// callee's own instructions operate on exactly the operand stack state
// its caller left behind, with no frame words in the way (the "cleaner
// redesign" of the call convention ambiguity).
type frame struct {
	savedSP uint64
	savedPC uint64
}

// VM is a single bytecode program loaded for execution. It owns its
// entire state (stack, call frames, JIT table and memory) and shares
// none of it with any other VM.
type VM struct {
	pc uint64
	sp uint64

	stack  [stackCapacity]uint64
	frames []frame

	program Program
	procPC  uint64

	callCounts map[uint64]uint64
	jitTable   map[uint64]*compiledProc
	jitMemory  []*execRegion

	errcode error
	stdout  *os.File
}

// New prepares a VM to execute prog from instruction 0.
func New(prog Program) *VM {
	return &VM{
		program:    prog,
		callCounts: make(map[uint64]uint64),
		jitTable:   make(map[uint64]*compiledProc),
		stdout:     os.Stdout,
	}
}

// Halted reports whether the program counter has run off the end of
// the program (pc == len(program) denotes halted).
func (vm *VM) Halted() bool {
	return vm.pc >= uint64(len(vm.program))
}

// Err returns the error that stopped the VM, or nil if it halted
// cleanly or hasn't run yet.
func (vm *VM) Err() error {
	return vm.errcode
}

// PC returns the current program counter, useful for trace hooks.
func (vm *VM) PC() uint64 { return vm.pc }

// Program exposes the loaded instruction stream read-only, for
// callers (the CLI's debug tracer) that want to render it.
func (vm *VM) Program() Program { return vm.program }

// StackSnapshot copies the live portion of the operand stack, top
// last. Intended for diagnostic dumps; does not mutate VM state.
func (vm *VM) StackSnapshot() []uint64 {
	out := make([]uint64, vm.sp)
	copy(out, vm.stack[:vm.sp])
	return out
}

// Close releases every executable memory region retained by the JIT.
// Native function pointers obtained from the JIT table are dangling
// once this returns.
func (vm *VM) Close() error {
	var first error
	for _, r := range vm.jitMemory {
		if err := r.release(); err != nil && first == nil {
			first = err
		}
	}
	vm.jitMemory = nil
	return first
}

// Run executes instructions until the program halts or an error stops
// it. A clean halt returns nil.
func (vm *VM) Run() error {
	for !vm.Halted() {
		if _, err := vm.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes exactly one instruction. It returns halted=true once
// the program counter has run off the end (including the instruction
// that produced that state) or on a failing instruction; the second
// return value is the failure, nil on a clean halt or ordinary step.
//
// Step is the seam external callers (the CLI's debug tracer) hook into
// between instructions; the core never sleeps or prints on its own.
func (vm *VM) Step() (halted bool, err error) {
	if vm.Halted() {
		return true, nil
	}

	instr := vm.program[vm.pc]
	shouldIncrementPC := true

	switch instr.Op {
	case OpPush:
		if err := vm.push(instr.Value); err != nil {
			return vm.fail(err)
		}

	case OpPop:
		if _, err := vm.pop(); err != nil {
			return vm.fail(err)
		}

	case OpPrt:
		if err := vm.doPrt(); err != nil {
			return vm.fail(err)
		}

	case OpInc:
		v, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		if v == math.MaxUint64 {
			return vm.fail(ErrOverflow)
		}
		if err := vm.push(v + 1); err != nil {
			return vm.fail(err)
		}

	case OpDup:
		v, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		if err := vm.push(v); err != nil {
			return vm.fail(err)
		}
		if err := vm.push(v); err != nil {
			return vm.fail(err)
		}

	case OpSwap:
		if err := vm.doSwap(instr.Value); err != nil {
			return vm.fail(err)
		}

	case OpCmp:
		a, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		b, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		if err := vm.push(b - a); err != nil {
			return vm.fail(err)
		}

	case OpJmp:
		if err := vm.jumpTo(instr.Value); err != nil {
			return vm.fail(err)
		}
		shouldIncrementPC = false

	case OpJmpp:
		addr, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		if err := vm.jumpTo(addr); err != nil {
			return vm.fail(err)
		}
		shouldIncrementPC = false

	case OpJeq:
		v, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		if v == 0 {
			if err := vm.jumpTo(instr.Value); err != nil {
				return vm.fail(err)
			}
			shouldIncrementPC = false
		}

	case OpJnz:
		v, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		if v != 0 {
			if err := vm.jumpTo(instr.Value); err != nil {
				return vm.fail(err)
			}
			shouldIncrementPC = false
		}

	case OpCall:
		jumped, err := vm.doCall(instr.Value)
		if err != nil {
			return vm.fail(err)
		}
		shouldIncrementPC = !jumped

	case OpRet:
		if err := vm.doRet(); err != nil {
			return vm.fail(err)
		}
		shouldIncrementPC = false

	case OpHalt:
		vm.pc = uint64(len(vm.program))
		return true, nil

	case OpInt:
		n, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		if n == 0 {
			vm.pc = uint64(len(vm.program))
			return true, nil
		}
		// Reserved values are no-ops.

	default:
		if fn, ok := arithOps[instr.Op]; ok {
			if err := vm.binaryArith(fn); err != nil {
				return vm.fail(err)
			}
			break
		}
		return vm.fail(fmt.Errorf("%w: %d", ErrUnknownOpcode, instr.Op))
	}

	if shouldIncrementPC {
		vm.pc++
	}
	return vm.Halted(), nil
}

func (vm *VM) fail(err error) (bool, error) {
	vm.errcode = err
	return true, err
}

func (vm *VM) push(v uint64) error {
	if vm.sp == stackCapacity {
		return ErrStackOverflow
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() (uint64, error) {
	if vm.sp == 0 {
		return 0, ErrStackUnderflow
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}

func (vm *VM) jumpTo(addr uint64) error {
	if addr >= uint64(len(vm.program)) {
		return ErrBadTarget
	}
	vm.pc = addr
	return nil
}

func (vm *VM) doPrt() error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	r := rune(uint32(v))
	if !utf8.ValidRune(r) {
		return ErrInvalidUnicode
	}
	fmt.Fprint(vm.stdout, string(r))
	return vm.push(v)
}

// doSwap implements Swap k: the slot k words below the current
// top trades places with the top, landing at the new top.
func (vm *VM) doSwap(k uint64) error {
	if vm.sp <= k {
		return ErrStackUnderflow
	}
	t, err := vm.pop()
	if err != nil {
		return err
	}
	pos := vm.sp - k
	old := vm.stack[pos]
	vm.stack[pos] = t
	return vm.push(old)
}

func (vm *VM) binaryArith(fn func(b, a uint64) uint64) error {
	a, err := vm.pop()
	if err != nil {
		return err
	}
	b, err := vm.pop()
	if err != nil {
		return err
	}
	return vm.push(fn(b, a))
}
