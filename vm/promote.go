package vm

// jitThreshold is the call count at which a procedure is handed to the
// JIT. This policy never decrements or clears call_counts; jit_table
// presence is what actually gates re-promotion, so the counter only
// ever needs to reach this value once.
const jitThreshold = 1

// doCall implements Call dispatch. It reports whether it
// performed a jump (interpreter frame) as opposed to an in-place
// native invocation, so the caller knows whether to suppress the
// normal pc increment.
func (vm *VM) doCall(target uint64) (jumped bool, err error) {
	if proc, ok := vm.jitTable[target]; ok {
		result, err := vm.callCompiled(proc)
		if err != nil {
			return false, err
		}
		if err := vm.push(result); err != nil {
			return false, err
		}
		return false, nil
	}

	if target >= uint64(len(vm.program)) {
		return false, ErrBadTarget
	}

	vm.callCounts[target]++

	vm.frames = append(vm.frames, frame{savedSP: vm.sp, savedPC: vm.pc + 1})
	vm.procPC = target
	vm.pc = target
	return true, nil
}

// doRet implements Ret plus the promotion check it triggers.
// The frame header lives on the hidden call stack rather than the
// operand stack, so the callee's own code never has to account for it
// (a cleaner redesign hides the frame in a separate call stack,
// which is what's implemented here).
func (vm *VM) doRet() error {
	if len(vm.frames) == 0 {
		return ErrStackUnderflow
	}

	r, err := vm.pop()
	if err != nil {
		return err
	}

	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]

	procPC := vm.procPC
	vm.sp = f.savedSP
	vm.pc = f.savedPC

	if err := vm.push(r); err != nil {
		return err
	}

	vm.maybePromote(procPC)
	return nil
}

// maybePromote hands entry's body to the JIT once its call count
// crosses jitThreshold. A failed or declined compilation simply leaves
// the procedure interpreted; promotion is always best-effort.
func (vm *VM) maybePromote(entry uint64) {
	if _, ok := vm.jitTable[entry]; ok {
		return
	}
	if vm.callCounts[entry] < jitThreshold {
		return
	}

	body := procedureBody(vm.program, entry)
	if body == nil {
		return
	}

	proc, err := compileProcedure(entry, body, vm.jitTable)
	if err != nil {
		return
	}

	vm.jitMemory = append(vm.jitMemory, proc.region)
	vm.jitTable[entry] = proc
}

// procedureBody returns the ByteCode slice from entry up to and
// including its terminating Ret, or nil if none is found before the
// program ends.
func procedureBody(prog Program, entry uint64) Program {
	for i := entry; i < uint64(len(prog)); i++ {
		if prog[i].Op == OpRet {
			return prog[entry : i+1]
		}
	}
	return nil
}
