package vm

import (
	"bytes"
	"testing"
)

func runToHalt(t *testing.T, source string) *VM {
	prog := mustAssemble(t, source)
	m := New(prog)
	err := m.Run()
	assert(t, err == nil, "unexpected run error: %v", err)
	return m
}

func topOf(t *testing.T, m *VM) uint64 {
	snap := m.StackSnapshot()
	assert(t, len(snap) > 0, "expected a non-empty stack")
	return snap[len(snap)-1]
}

func TestCharArithmetic(t *testing.T) {
	m := runToHalt(t, "push 49 push 10 sub64 push 11 add64 prt halt")
	assert(t, topOf(t, m) == 50, "expected top == 50 ('2'), got %d", topOf(t, m))
}

func TestCallRet(t *testing.T) {
	m := runToHalt(t, "push 7 call sq halt sq: dup uadd64 ret")
	assert(t, topOf(t, m) == 14, "expected top == 14, got %d", topOf(t, m))
	assert(t, m.sp == 2, "expected sp restored to 1 above pre-call value, got sp=%d", m.sp)
}

func TestConditionalJump(t *testing.T) {
	m := runToHalt(t, "push 5 push 5 cmp jeq eq push 1 halt eq: push 0 halt")
	assert(t, topOf(t, m) == 0, "expected branch taken, top == 0, got %d", topOf(t, m))
}

func TestRoundTripBinary(t *testing.T) {
	prog := mustAssemble(t, "push 49 push 10 sub64 push 11 add64 prt halt")

	var buf bytes.Buffer
	assert(t, writeBin(&buf, prog) == nil, "writeBin failed")

	got, err := readBin(&buf)
	assert(t, err == nil, "readBin failed: %v", err)
	assert(t, len(got) == len(prog), "length mismatch after round trip")
	for i := range prog {
		assert(t, got[i] == prog[i], "record %d mismatch: got %+v want %+v", i, got[i], prog[i])
	}
}

func TestJITPromotionMatchesInterpreter(t *testing.T) {
	m := runToHalt(t, "push 3 call f push 3 call f halt f: push 4 uadd64 ret")
	assert(t, topOf(t, m) == 7, "expected top == 7 after both calls, got %d", topOf(t, m))
	assert(t, m.callCounts[5] >= jitThreshold, "expected the procedure to have been called at least jitThreshold times")
}

func TestStackUnderflow(t *testing.T) {
	prog := mustAssemble(t, "pop")
	m := New(prog)
	err := m.Run()
	assert(t, err == ErrStackUnderflow, "expected ErrStackUnderflow, got %v", err)
}

func TestStackOverflow(t *testing.T) {
	prog := mustAssemble(t, "start: push 1 jmp start")
	m := New(prog)
	err := m.Run()
	assert(t, err == ErrStackOverflow, "expected ErrStackOverflow, got %v", err)
}

func TestIncOverflow(t *testing.T) {
	prog := Program{
		{Op: OpPush, Value: ^uint64(0)},
		{Op: OpInc},
		{Op: OpHalt},
	}
	m := New(prog)
	err := m.Run()
	assert(t, err == ErrOverflow, "expected ErrOverflow, got %v", err)
}

func TestJmppSetsPC(t *testing.T) {
	prog := mustAssemble(t, "push 5 jmpp halt halt halt target: push 9 halt")
	m := New(prog)
	assert(t, m.Run() == nil, "unexpected run error")
	assert(t, topOf(t, m) == 9, "jmpp should have jumped to its popped target, got %d", topOf(t, m))
}

func TestSwap(t *testing.T) {
	m := runToHalt(t, "push 1 push 2 push 3 swap 2 halt")
	snap := m.StackSnapshot()
	assert(t, len(snap) == 3, "expected 3 live words, got %d", len(snap))
	assert(t, snap[2] == 1 && snap[0] == 3, "expected bottom and top swapped, got %v", snap)
}
