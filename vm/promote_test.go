package vm

import "testing"

func TestProcedureBodyIncludesRet(t *testing.T) {
	prog := mustAssemble(t, "push 3 call f halt f: push 4 uadd64 ret")
	body := procedureBody(prog, 3)
	assert(t, body != nil, "expected a procedure body")
	assert(t, len(body) == 3, "expected 3 instructions (push, uadd64, ret), got %d", len(body))
	assert(t, body[len(body)-1].Op == OpRet, "expected body to end in ret")
}

func TestProcedureBodyMissingRetIsNil(t *testing.T) {
	prog := Program{{Op: OpPush, Value: 1}, {Op: OpHalt}}
	assert(t, procedureBody(prog, 0) == nil, "expected nil when no ret follows entry")
}

func TestPromotionIsIdempotent(t *testing.T) {
	m := runToHalt(t, "push 3 call f push 3 call f push 3 call f halt f: push 4 uadd64 ret")
	assert(t, topOf(t, m) == 7, "expected top == 7, got %d", topOf(t, m))
	// Once installed, jit_table presence alone gates re-promotion;
	// call_counts for the entry stops mattering after that point.
	_, installed := m.jitTable[7]
	assert(t, installed || m.callCounts[7] >= jitThreshold, "expected either a jit installation or a met threshold with a declined compilation, never neither")
}
