//go:build amd64 && unix

package vm

// Hand-rolled amd64 instruction emission, in the same raw-byte-slice
// style as a small native backend: each helper appends the exact
// bytes for one fixed instruction form to c.code. No general-purpose
// register allocator: the encoder only ever uses rax, rbx and rcx as
// scratch, which the lowering table in jit_amd64.go never needs live
// across more than two instructions at a time.

func putInt32(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func (c *amd64Encoder) emitBytes(b ...byte) {
	c.code = append(c.code, b...)
}

// movImm64RAX: 48 B8 imm64, mov rax, imm64.
func (c *amd64Encoder) movImm64RAX(v uint64) {
	var imm [8]byte
	putUint64(imm[:], v)
	c.emitBytes(0x48, 0xB8)
	c.emitBytes(imm[:]...)
}

// movImm64RCX: 48 B9 imm64, mov rcx, imm64.
func (c *amd64Encoder) movImm64RCX(v uint64) {
	var imm [8]byte
	putUint64(imm[:], v)
	c.emitBytes(0x48, 0xB9)
	c.emitBytes(imm[:]...)
}

func (c *amd64Encoder) pushRAX() { c.emitBytes(0x50) }
func (c *amd64Encoder) pushRBX() { c.emitBytes(0x53) }
func (c *amd64Encoder) popRAX()  { c.emitBytes(0x58) }
func (c *amd64Encoder) popRBX()  { c.emitBytes(0x5B) }
func (c *amd64Encoder) popRCX()  { c.emitBytes(0x59) }

// addRAXRBX: 48 01 D8, add rax, rbx.
func (c *amd64Encoder) addRAXRBX() { c.emitBytes(0x48, 0x01, 0xD8) }

// subRBXRAX: 48 29 C3, sub rbx, rax (rbx -= rax).
func (c *amd64Encoder) subRBXRAX() { c.emitBytes(0x48, 0x29, 0xC3) }

// testRAXRAX: 48 85 C0, test rax, rax (sets ZF for the jcc that follows).
func (c *amd64Encoder) testRAXRAX() { c.emitBytes(0x48, 0x85, 0xC0) }

func (c *amd64Encoder) ret() { c.emitBytes(0xC3) }

// jmpRel32 emits E9 + a placeholder rel32, recording a relocation
// against target resolved once every instruction has an offset.
func (c *amd64Encoder) jmpRel32(target uint64) {
	c.emitBytes(0xE9, 0, 0, 0, 0)
	c.recordReloc(4, target)
}

// jccRel32 emits a two-byte 0F 8x conditional near jump.
func (c *amd64Encoder) jccRel32(cc byte, target uint64) {
	c.emitBytes(0x0F, cc, 0, 0, 0, 0)
	c.recordReloc(4, target)
}

func (c *amd64Encoder) recordReloc(rel32Size int, target uint64) {
	c.relocs = append(c.relocs, relocation{patchAt: len(c.code) - rel32Size, targetIdx: target})
}

// callAbs: mov rcx, imm64(addr); call rcx, FF D1. Targets rcx rather
// than rax so a live argument/result already sitting in rax (the
// calling convention register) survives the call untouched.
func (c *amd64Encoder) callAbs(addr uintptr) {
	c.movImm64RCX(uint64(addr))
	c.emitBytes(0xFF, 0xD1)
}

// swap exchanges the top of the (real CPU) stack with the word k
// slots below it, matching Swap over the JIT's hardware-stack
// representation of the operand stack.
func (c *amd64Encoder) swap(k uint64) {
	// Measured after the pop below: the word k slots below the old top
	// is k-1 slots above rsp (k == 0 is the slot the top was popped from).
	offset := int32(8*k) - 8
	c.popRAX() // top -> rax

	// rbx = [rsp + offset]; [rsp + offset] = rax; push rbx
	c.emitBytes(0x48, 0x8B, 0x9C, 0x24) // mov rbx, [rsp + disp32]
	var disp [4]byte
	putInt32(disp[:], offset)
	c.emitBytes(disp[:]...)

	c.emitBytes(0x48, 0x89, 0x84, 0x24) // mov [rsp + disp32], rax
	c.emitBytes(disp[:]...)

	c.pushRBX()
}
