// Package chip8 implements the core of a CHIP-8 virtual machine: the
// instruction decoder, the framebuffer, and the cycle-driven executor that
// models the original COSMAC-VIP CHIP-8 with a SUPER-CHIP compatibility
// toggle. It has no knowledge of windowing, audio, or ROM file handling;
// those are host concerns layered on top in internal/presenter, internal/
// audio, and internal/rom.
package chip8

import "fmt"

// Mode selects which of the two historical CHIP-8 dialects governs the
// handful of opcodes whose semantics differ between them (8XY1/8XY2/8XY3 VF
// reset, 8XY6/8XYE shift source, BNNN offset register, FX55/FX65 index
// advancement).
type Mode int

const (
	// CosmacVIP reproduces the original 1977 interpreter's behavior.
	CosmacVIP Mode = iota
	// SuperChip reproduces the HP-48 SUPER-CHIP interpreter's behavior.
	SuperChip
)

func (m Mode) String() string {
	if m == SuperChip {
		return "super-chip"
	}
	return "cosmac-vip"
}

const (
	memSize    = 4096
	romBase    = 0x200
	maxROMSize = memSize - romBase
	stackDepth = 16
	numRegs    = 16
	numKeys    = 16

	// fontBase is fixed at construction and used consistently by FX29.
	fontBase = 0x000
)

var fontSet = [80]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Keys is a keypad snapshot: 16 booleans indexed by the canonical CHIP-8
// hex keypad layout. The VM never mutates it; a host rebuilds one each step
// from its own input state.
type Keys [numKeys]bool

// Pressed reports whether key k is down. Keys outside [0,16) read as not
// pressed.
func (k Keys) Pressed(key uint8) bool {
	if key >= numKeys {
		return false
	}
	return k[key]
}

// StepOutcome is the result of a single VM.Step call.
type StepOutcome struct {
	// Kind distinguishes a normal step from the exceptional cases.
	Kind StepKind
	// Opcode holds the raw word for Kind == StepUnknownOpcode.
	Opcode uint16
	// Err holds the fatal cause for Kind == StepFault.
	Err error
}

type StepKind int

const (
	StepRan StepKind = iota
	StepHalted
	StepUnknownOpcode
	StepFault
)

// VM holds the full mutable state of a CHIP-8 machine: memory, registers,
// stack, timers, keypad snapshot, program counter, index register, RNG
// source, and compatibility mode.
type VM struct {
	memory [memSize]byte
	v      [numRegs]byte
	i      uint16
	pc     uint16

	stack [stackDepth]uint16
	sp    int

	delayTimer byte
	soundTimer byte

	keys     Keys
	prevKeys Keys

	fb   FrameBuffer
	mode Mode
	rng  RNG
	log  *dedupLogger

	poisoned bool

	// waiting tracks an in-progress FX0A: the register to receive the key,
	// and whether a key was observed pressed since the wait began (so the
	// release edge can be detected across steps without blocking).
	waiting      bool
	waitReg      uint8
	waitKeySeen  bool
	waitKeyIndex uint8
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithRNG overrides the default seeded xorshift RNG.
func WithRNG(rng RNG) Option {
	return func(vm *VM) { vm.rng = rng }
}

// WithLogger overrides the default stderr logger.
func WithLogger(l Logger) Option {
	return func(vm *VM) { vm.log = newDedupLogger(l) }
}

// New constructs a VM from ROM bytes and a compatibility mode. Construction
// zeroes memory, writes the font block at fontBase, copies the ROM at
// 0x200, and sets PC = 0x200. Timers, registers, I, and the stack all start
// at zero. A ROM longer than 3584 bytes fails construction.
func New(rom []byte, mode Mode, opts ...Option) (*VM, error) {
	if len(rom) > maxROMSize {
		return nil, &LoadError{Kind: RomTooLarge, Size: len(rom)}
	}

	vm := &VM{
		pc:   romBase,
		mode: mode,
		rng:  NewXorshiftRNG(0xC8C8C8C8),
		log:  newDedupLogger(NewStdLogger()),
	}
	copy(vm.memory[fontBase:], fontSet[:])
	copy(vm.memory[romBase:], rom)

	for _, opt := range opts {
		opt(vm)
	}
	return vm, nil
}

// FrameBuffer returns the VM's live display buffer. A host reads it and
// calls ClearDirty after a redraw; View gives a copy of the pixels.
func (vm *VM) FrameBuffer() *FrameBuffer {
	return &vm.fb
}

// SoundActive reports whether the sound timer is currently nonzero.
func (vm *VM) SoundActive() bool {
	return vm.soundTimer > 0
}

// Mode returns the VM's immutable compatibility mode.
func (vm *VM) Mode() Mode {
	return vm.mode
}

// PC returns the current program counter, mostly useful to tests and a
// host-side debugger.
func (vm *VM) PC() uint16 {
	return vm.pc
}

// Register returns the value of Vn. It panics if n >= 16, since every
// caller in this codebase derives n from a 4-bit opcode field.
func (vm *VM) Register(n uint8) byte {
	return vm.v[n]
}

// Tick decrements the delay and sound timers by one each, if they are
// above zero. A host drives this at a fixed 60 Hz independent of Step's
// cadence; see Ticker for the accumulator that arranges that.
func (vm *VM) Tick() {
	if vm.delayTimer > 0 {
		vm.delayTimer--
	}
	if vm.soundTimer > 0 {
		vm.soundTimer--
	}
}

func (vm *VM) fault(kind FaultKind, addr uint16) StepOutcome {
	err := &FaultError{Kind: kind, Addr: addr, PC: vm.pc}
	vm.poisoned = true
	return StepOutcome{Kind: StepFault, Err: err}
}

var errPoisoned = fmt.Errorf("vm is poisoned by a prior fault")
