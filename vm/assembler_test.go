package vm

import (
	"errors"
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func mustAssemble(t *testing.T, source string) Program {
	prog, err := Assemble(source)
	assert(t, err == nil, "Failed to assemble: %s", err)
	return prog
}

func TestAssembleCharArithmetic(t *testing.T) {
	// Scenario 1: push 49 push 10 sub64 push 11 add64 prt halt
	prog := mustAssemble(t, "push 49 push 10 sub64 push 11 add64 prt halt")
	want := Program{
		{Op: OpPush, Value: 49},
		{Op: OpPush, Value: 10},
		{Op: OpSub64},
		{Op: OpPush, Value: 11},
		{Op: OpAdd64},
		{Op: OpPrt},
		{Op: OpHalt},
	}
	assert(t, len(prog) == len(want), "length mismatch: got %d want %d", len(prog), len(want))
	for i := range want {
		assert(t, prog[i] == want[i], "record %d: got %+v want %+v", i, prog[i], want[i])
	}
}

func TestAssembleLabelResolution(t *testing.T) {
	// Scenario 2: start: push 1 push 2 add64 jmp start
	prog := mustAssemble(t, "start: push 1 push 2 add64 jmp start")
	assert(t, len(prog) == 5, "expected 4 instructions plus the implicit halt, got %d", len(prog))
	assert(t, prog[3].Op == OpJmp && prog[3].Value == 0, "jmp should target instruction 0, got %+v", prog[3])
}

func TestAssembleImplicitHalt(t *testing.T) {
	prog := mustAssemble(t, "push 1 pop")
	assert(t, prog[len(prog)-1].Op == OpHalt, "expected synthetic halt, got %s", prog[len(prog)-1])

	prog = mustAssemble(t, "push 1 halt")
	assert(t, len(prog) == 2, "halt should not be duplicated, got %d instructions", len(prog))
}

func TestAssembleUnresolvedSymbol(t *testing.T) {
	_, err := Assemble("jmp nowhere")
	assert(t, errors.Is(err, ErrUnresolvedSymbol), "expected ErrUnresolvedSymbol, got %v", err)
}

func TestAssembleOrphanImmediate(t *testing.T) {
	_, err := Assemble("42 halt")
	assert(t, errors.Is(err, ErrOrphanImmediate), "expected ErrOrphanImmediate, got %v", err)
}

func TestAssembleMalformedImmediate(t *testing.T) {
	_, err := Assemble("push halt")
	assert(t, errors.Is(err, ErrMalformedImmediate), "expected ErrMalformedImmediate, got %v", err)
}

func TestAssembleDuplicateLabelOverwrites(t *testing.T) {
	// Last definition wins.
	prog := mustAssemble(t, "a: push 1 a: push 2 jmp a")
	assert(t, prog[2].Op == OpJmp && prog[2].Value == 1, "expected jmp to resolve to the later label, got %+v", prog[2])
}
