package chip8

import "fmt"

// Step fetches the instruction at PC, decodes it, and applies it, driving
// the framebuffer and/or PC as a side effect. It is non-blocking: FX0A
// ("wait for a key") is implemented as a self-loop that re-executes rather
// than suspending, so a host can always call Step freely off its own
// cadence.
//
// Step rejects further calls once a fatal fault has poisoned the VM.
func (vm *VM) Step(keys Keys) StepOutcome {
	if vm.poisoned {
		return StepOutcome{Kind: StepFault, Err: errPoisoned}
	}

	vm.prevKeys = vm.keys
	vm.keys = keys

	if vm.pc >= memSize-1 {
		return StepOutcome{Kind: StepHalted}
	}

	raw := uint16(vm.memory[vm.pc])<<8 | uint16(vm.memory[vm.pc+1])
	vm.pc += 2

	op := Decode(raw)
	if op.Kind == OpUnknown {
		vm.log.warnOnce(fmt.Sprintf("opcode:%04X", raw), "unknown opcode 0x%04X at pc=0x%03X", raw, vm.pc-2)
		return StepOutcome{Kind: StepUnknownOpcode, Opcode: raw}
	}

	return vm.apply(op)
}

func (vm *VM) apply(op Opcode) StepOutcome {
	x, y, n, nn, nnn := op.X, op.Y, op.N, op.NN, op.NNN

	switch op.Kind {
	case OpClearScreen:
		vm.fb.Clear()

	case OpJump:
		vm.pc = nnn

	case OpCall:
		if vm.sp >= stackDepth {
			return vm.fault(StackOverflow, nnn)
		}
		vm.stack[vm.sp] = vm.pc
		vm.sp++
		vm.pc = nnn

	case OpReturn:
		if vm.sp == 0 {
			vm.log.warnOnce("return:empty-stack", "00EE: return with empty stack ignored at pc=0x%03X", vm.pc-2)
			break
		}
		vm.sp--
		vm.pc = vm.stack[vm.sp]

	case OpSkipEqImm:
		if vm.v[x] == nn {
			vm.pc += 2
		}

	case OpSkipNeImm:
		if vm.v[x] != nn {
			vm.pc += 2
		}

	case OpSkipEqReg:
		if vm.v[x] == vm.v[y] {
			vm.pc += 2
		}

	case OpSkipNeReg:
		if vm.v[x] != vm.v[y] {
			vm.pc += 2
		}

	case OpSet:
		vm.v[x] = nn

	case OpAddImm:
		vm.v[x] = vm.v[x] + nn

	case OpCopy:
		vm.v[x] = vm.v[y]

	case OpOr:
		vm.v[x] |= vm.v[y]
		if vm.mode == CosmacVIP {
			vm.v[0xF] = 0
		}

	case OpAnd:
		vm.v[x] &= vm.v[y]
		if vm.mode == CosmacVIP {
			vm.v[0xF] = 0
		}

	case OpXor:
		vm.v[x] ^= vm.v[y]
		if vm.mode == CosmacVIP {
			vm.v[0xF] = 0
		}

	case OpAdd:
		sum := uint16(vm.v[x]) + uint16(vm.v[y])
		vm.v[x] = byte(sum)
		if sum > 0xFF {
			vm.v[0xF] = 1
		} else {
			vm.v[0xF] = 0
		}

	case OpSub:
		borrow := vm.v[x] >= vm.v[y]
		vm.v[x] = vm.v[x] - vm.v[y]
		if borrow {
			vm.v[0xF] = 1
		} else {
			vm.v[0xF] = 0
		}

	case OpSubN:
		borrow := vm.v[y] >= vm.v[x]
		vm.v[x] = vm.v[y] - vm.v[x]
		if borrow {
			vm.v[0xF] = 1
		} else {
			vm.v[0xF] = 0
		}

	case OpShr:
		var flag byte
		if vm.mode == CosmacVIP {
			flag = vm.v[y] & 0x01
			vm.v[x] = vm.v[y] >> 1
		} else {
			flag = vm.v[x] & 0x01
			vm.v[x] = vm.v[x] >> 1
		}
		vm.v[0xF] = flag

	case OpShl:
		var flag byte
		if vm.mode == CosmacVIP {
			flag = (vm.v[y] >> 7) & 0x01
			vm.v[x] = vm.v[y] << 1
		} else {
			flag = (vm.v[x] >> 7) & 0x01
			vm.v[x] = vm.v[x] << 1
		}
		vm.v[0xF] = flag

	case OpSetI:
		vm.i = nnn

	case OpJumpOffset:
		if vm.mode == CosmacVIP {
			vm.pc = nnn + uint16(vm.v[0])
		} else {
			vm.pc = nnn + uint16(vm.v[x])
		}

	case OpRand:
		vm.v[x] = vm.rng.Uint8() & nn

	case OpDisplay:
		return vm.opDisplay(x, y, n)

	case OpSkipIfKey:
		pressed, ok := vm.keyLookup(vm.v[x])
		if !ok {
			vm.log.warnOnce("key-range", "key index %d out of range", vm.v[x])
		}
		if pressed {
			vm.pc += 2
		}

	case OpSkipIfNotKey:
		pressed, ok := vm.keyLookup(vm.v[x])
		if !ok {
			vm.log.warnOnce("key-range", "key index %d out of range", vm.v[x])
		}
		if !pressed {
			vm.pc += 2
		}

	case OpGetDelay:
		vm.v[x] = vm.delayTimer

	case OpWaitKey:
		vm.opWaitKey(x)

	case OpSetDelay:
		vm.delayTimer = vm.v[x]

	case OpSetSound:
		vm.soundTimer = vm.v[x]

	case OpAddI:
		sum := uint32(vm.i) + uint32(vm.v[x])
		overflowed := vm.i <= 0x0FFF && sum >= 0x1000
		vm.i = uint16(sum)
		if overflowed {
			vm.v[0xF] = 1
		} else {
			vm.v[0xF] = 0
		}

	case OpFontAddr:
		vm.i = fontBase + uint16(vm.v[x]&0x0F)*5

	case OpBCD:
		if uint32(vm.i)+2 >= memSize {
			return vm.fault(MemoryOutOfBounds, vm.i+2)
		}
		value := vm.v[x]
		vm.memory[vm.i] = value / 100
		vm.memory[vm.i+1] = (value / 10) % 10
		vm.memory[vm.i+2] = value % 10

	case OpStoreRegs:
		if uint32(vm.i)+uint32(x) >= memSize {
			return vm.fault(MemoryOutOfBounds, vm.i+uint16(x))
		}
		for idx := uint8(0); idx <= x; idx++ {
			vm.memory[vm.i+uint16(idx)] = vm.v[idx]
		}
		if vm.mode == CosmacVIP {
			vm.i += uint16(x) + 1
		}

	case OpLoadRegs:
		if uint32(vm.i)+uint32(x) >= memSize {
			return vm.fault(MemoryOutOfBounds, vm.i+uint16(x))
		}
		for idx := uint8(0); idx <= x; idx++ {
			vm.v[idx] = vm.memory[vm.i+uint16(idx)]
		}
		if vm.mode == CosmacVIP {
			vm.i += uint16(x) + 1
		}
	}

	return StepOutcome{Kind: StepRan}
}

func (vm *VM) opDisplay(x, y, n uint8) StepOutcome {
	vx, vy := uint16(vm.v[x]), uint16(vm.v[y])
	end := uint32(vm.i) + uint32(n)
	if end > memSize {
		return vm.fault(MemoryOutOfBounds, vm.i+uint16(n))
	}
	rows := vm.memory[vm.i : uint16(vm.i)+uint16(n)]
	collision := vm.fb.BlitSprite(int(vx), int(vy), rows)
	if collision {
		vm.v[0xF] = 1
	} else {
		vm.v[0xF] = 0
	}
	return StepOutcome{Kind: StepRan}
}

// keyLookup reports whether key index v is pressed. A value outside
// [0, 16) is reported as not pressed, alongside ok=false so the caller can
// log KeyOutOfRange once.
func (vm *VM) keyLookup(v byte) (pressed bool, ok bool) {
	if v >= numKeys {
		return false, false
	}
	return vm.keys.Pressed(v), true
}

// opWaitKey implements FX0A without blocking: the instruction re-executes
// (PC held at its own address) until a key has been observed pressed and
// then released across successive Step calls.
func (vm *VM) opWaitKey(x uint8) {
	if !vm.waiting {
		vm.waiting = true
		vm.waitReg = x
		vm.waitKeySeen = false
		vm.pc -= 2
		return
	}

	if !vm.waitKeySeen {
		for i := uint8(0); i < numKeys; i++ {
			if vm.keys.Pressed(i) {
				vm.waitKeySeen = true
				vm.waitKeyIndex = i
				break
			}
		}
		vm.pc -= 2
		return
	}

	released := vm.prevKeys.Pressed(vm.waitKeyIndex) && !vm.keys.Pressed(vm.waitKeyIndex)
	if !released {
		vm.pc -= 2
		return
	}

	vm.v[vm.waitReg] = vm.waitKeyIndex
	vm.waiting = false
}
