package chip8

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsOversizedROM(t *testing.T) {
	ok := make([]byte, maxROMSize)
	_, err := New(ok, CosmacVIP)
	require.NoError(t, err)

	tooBig := make([]byte, maxROMSize+1)
	_, err = New(tooBig, CosmacVIP)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, RomTooLarge, loadErr.Kind)
}

func TestNewInitialState(t *testing.T) {
	vm, err := New([]byte{0x00, 0xE0}, CosmacVIP)
	require.NoError(t, err)

	require.EqualValues(t, romBase, vm.PC())
	require.EqualValues(t, 0, vm.delayTimer)
	require.EqualValues(t, 0, vm.soundTimer)
	require.EqualValues(t, 0, vm.i)
	for i := 0; i < numRegs; i++ {
		require.EqualValues(t, 0, vm.Register(uint8(i)))
	}
	require.Equal(t, fontSet[:], vm.memory[fontBase:fontBase+80])
}

// Scenario 1: Clear + jump. ROM = 00E0 1202.
func TestScenarioClearAndJump(t *testing.T) {
	vm, err := New([]byte{0x00, 0xE0, 0x12, 0x02}, CosmacVIP)
	require.NoError(t, err)
	vm.fb.BlitSprite(0, 0, []byte{0xFF})

	out := vm.Step(Keys{})
	require.Equal(t, StepRan, out.Kind)
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			require.False(t, vm.fb.At(x, y))
		}
	}
	require.EqualValues(t, 0x202, vm.PC())

	out = vm.Step(Keys{})
	require.Equal(t, StepRan, out.Kind)
	require.EqualValues(t, 0x202, vm.PC())
}

// Scenario 2: Add with overflow.
func TestScenarioAddOverflow(t *testing.T) {
	rom := []byte{
		0x60, 0xFF, // V0 = 0xFF
		0x61, 0x01, // V1 = 0x01
		0x80, 0x14, // V0 += V1
	}
	vm, err := New(rom, CosmacVIP)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.Equal(t, StepRan, vm.Step(Keys{}).Kind)
	}
	require.EqualValues(t, 0x00, vm.Register(0))
	require.EqualValues(t, 1, vm.Register(0xF))
}

// Scenario 3: Sub no-borrow.
func TestScenarioSubNoBorrow(t *testing.T) {
	rom := []byte{
		0x60, 0x05, // V0 = 5
		0x61, 0x02, // V1 = 2
		0x80, 0x15, // V0 -= V1
	}
	vm, err := New(rom, CosmacVIP)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.Equal(t, StepRan, vm.Step(Keys{}).Kind)
	}
	require.EqualValues(t, 0x03, vm.Register(0))
	require.EqualValues(t, 1, vm.Register(0xF))
}

// Scenario 4: BCD.
func TestScenarioBCD(t *testing.T) {
	rom := []byte{
		0x60, 156, // V0 = 156
		0xA3, 0x00, // I = 0x300
		0xF0, 0x33, // BCD V0
	}
	vm, err := New(rom, CosmacVIP)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.Equal(t, StepRan, vm.Step(Keys{}).Kind)
	}
	require.EqualValues(t, 1, vm.memory[0x300])
	require.EqualValues(t, 5, vm.memory[0x301])
	require.EqualValues(t, 6, vm.memory[0x302])
}

// Scenario 5: Display collision on the '0' glyph, drawn at the font's own
// memory location so no extra ROM bytes are needed.
func TestScenarioDisplayCollision(t *testing.T) {
	rom := []byte{
		0xA0, 0x00, // I = 0x000 (font base, glyph '0')
		0xD0, 0x15, // draw 5 rows at (V0, V1) = (0,0)
		0xD0, 0x15, // draw again: should toggle back off
	}
	vm, err := New(rom, CosmacVIP)
	require.NoError(t, err)

	require.Equal(t, StepRan, vm.Step(Keys{}).Kind)
	require.Equal(t, StepRan, vm.Step(Keys{}).Kind)
	require.EqualValues(t, 0, vm.Register(0xF))
	require.True(t, vm.fb.At(0, 0))

	require.Equal(t, StepRan, vm.Step(Keys{}).Kind)
	require.EqualValues(t, 1, vm.Register(0xF))
	for y := 0; y < 5; y++ {
		for x := 0; x < 8; x++ {
			require.False(t, vm.fb.At(x, y))
		}
	}
}

// Scenario 6: Store/Load quirk, mode-dependent I advancement.
func TestScenarioStoreRegsQuirk(t *testing.T) {
	rom := []byte{
		0x60, 0xAA, // V0 = 0xAA
		0x61, 0xBB, // V1 = 0xBB
		0xA3, 0x00, // I = 0x300
		0xF1, 0x55, // store V0..V1
	}

	vip, err := New(rom, CosmacVIP)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.Equal(t, StepRan, vip.Step(Keys{}).Kind)
	}
	require.EqualValues(t, 0xAA, vip.memory[0x300])
	require.EqualValues(t, 0xBB, vip.memory[0x301])
	require.EqualValues(t, 0x302, vip.i)

	schip, err := New(rom, SuperChip)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.Equal(t, StepRan, schip.Step(Keys{}).Kind)
	}
	require.EqualValues(t, 0xAA, schip.memory[0x300])
	require.EqualValues(t, 0xBB, schip.memory[0x301])
	require.EqualValues(t, 0x300, schip.i)
}

func TestAddImmLeavesFlagUnchanged(t *testing.T) {
	rom := []byte{
		0x70, 0xFF, // V0 += 0xFF
		0x70, 0xFF, // V0 += 0xFF again
	}
	vm, err := New(rom, CosmacVIP)
	require.NoError(t, err)

	require.Equal(t, StepRan, vm.Step(Keys{}).Kind)
	require.EqualValues(t, 0xFF, vm.Register(0))
	require.EqualValues(t, 0, vm.Register(0xF))

	require.Equal(t, StepRan, vm.Step(Keys{}).Kind)
	require.EqualValues(t, 0xFE, vm.Register(0))
	require.EqualValues(t, 0, vm.Register(0xF))
}

func TestShiftQuirksByMode(t *testing.T) {
	rom := []byte{
		0x61, 0x03, // V1 = 0x03 (binary 011)
		0x80, 0x16, // V0 = shr(V?), x=0 y=1
	}

	vip, err := New(rom, CosmacVIP)
	require.NoError(t, err)
	require.Equal(t, StepRan, vip.Step(Keys{}).Kind)
	require.Equal(t, StepRan, vip.Step(Keys{}).Kind)
	require.EqualValues(t, 0x01, vip.Register(0))
	require.EqualValues(t, 1, vip.Register(0xF))

	schip, err := New(rom, SuperChip)
	require.NoError(t, err)
	schip.v[0] = 0x03
	require.Equal(t, StepRan, schip.Step(Keys{}).Kind) // V1 = 3 (irrelevant now)
	require.Equal(t, StepRan, schip.Step(Keys{}).Kind)
	require.EqualValues(t, 0x01, schip.Register(0))
	require.EqualValues(t, 1, schip.Register(0xF))
}

func TestJumpOffsetByMode(t *testing.T) {
	rom := []byte{0xB3, 0x00} // BNNN with NNN=0x300

	vip, err := New(rom, CosmacVIP)
	require.NoError(t, err)
	vip.v[0] = 0x10
	vip.Step(Keys{})
	require.EqualValues(t, 0x310, vip.PC())

	schip, err := New(rom, SuperChip)
	require.NoError(t, err)
	schip.v[3] = 0x10 // x = high nibble of NNN = 0x3
	schip.Step(Keys{})
	require.EqualValues(t, 0x310, schip.PC())
}

func TestEmptyStackReturnIsNonFatal(t *testing.T) {
	vm, err := New([]byte{0x00, 0xEE}, CosmacVIP)
	require.NoError(t, err)

	out := vm.Step(Keys{})
	require.Equal(t, StepRan, out.Kind)
	require.EqualValues(t, 0x202, vm.PC())
}

func TestStackOverflowIsFatal(t *testing.T) {
	rom := make([]byte, 0)
	for i := 0; i < 17; i++ {
		rom = append(rom, 0x22, 0x00) // call self repeatedly
	}
	vm, err := New(rom, CosmacVIP)
	require.NoError(t, err)

	var last StepOutcome
	for i := 0; i < 17; i++ {
		last = vm.Step(Keys{})
	}
	require.Equal(t, StepFault, last.Kind)
	var faultErr *FaultError
	require.ErrorAs(t, last.Err, &faultErr)
	require.Equal(t, StackOverflow, faultErr.Kind)

	poisoned := vm.Step(Keys{})
	require.Equal(t, StepFault, poisoned.Kind)
}

func TestUnknownOpcodeIsNonFatal(t *testing.T) {
	vm, err := New([]byte{0x51, 0x01, 0x00, 0xE0}, CosmacVIP) // 5XY1 is not a valid form
	require.NoError(t, err)

	out := vm.Step(Keys{})
	require.Equal(t, StepUnknownOpcode, out.Kind)
	require.EqualValues(t, 0x5101, out.Opcode)

	out = vm.Step(Keys{})
	require.Equal(t, StepRan, out.Kind)
}

func TestWaitKeyBlocksUntilPressAndRelease(t *testing.T) {
	vm, err := New([]byte{0xF0, 0x0A}, CosmacVIP)
	require.NoError(t, err)

	var none, pressed Keys
	pressed[5] = true

	out := vm.Step(none)
	require.Equal(t, StepRan, out.Kind)
	require.EqualValues(t, romBase, vm.PC(), "should re-loop on the instruction")

	out = vm.Step(none)
	require.EqualValues(t, romBase, vm.PC())

	out = vm.Step(pressed)
	require.EqualValues(t, romBase, vm.PC(), "press observed, still waiting for release")

	out = vm.Step(pressed)
	require.EqualValues(t, romBase, vm.PC(), "still held, no release yet")

	out = vm.Step(none)
	require.Equal(t, StepRan, out.Kind)
	require.EqualValues(t, romBase+2, vm.PC())
	require.EqualValues(t, 5, vm.Register(0))
}

func TestFontAddr(t *testing.T) {
	rom := []byte{
		0x60, 0x0A, // V0 = 0xA
		0xF0, 0x29, // I = font addr of digit A
	}
	vm, err := New(rom, CosmacVIP)
	require.NoError(t, err)
	vm.Step(Keys{})
	vm.Step(Keys{})
	require.EqualValues(t, fontBase+0xA*5, vm.i)
}

func TestRandMasksWithNN(t *testing.T) {
	vm, err := New([]byte{0xC0, 0x0F}, CosmacVIP, WithRNG(NewConstRNG(0xFF)))
	require.NoError(t, err)
	vm.Step(Keys{})
	require.EqualValues(t, 0x0F, vm.Register(0))
}

func TestTickNeverGoesNegative(t *testing.T) {
	vm, err := New([]byte{0x00, 0xE0}, CosmacVIP)
	require.NoError(t, err)
	vm.delayTimer = 3
	vm.soundTimer = 1

	for i := 0; i < 5; i++ {
		vm.Tick()
	}
	require.EqualValues(t, 0, vm.delayTimer)
	require.EqualValues(t, 0, vm.soundTimer)
}

func TestSoundActive(t *testing.T) {
	vm, err := New([]byte{0x00, 0xE0}, CosmacVIP)
	require.NoError(t, err)
	require.False(t, vm.SoundActive())
	vm.soundTimer = 2
	require.True(t, vm.SoundActive())
}
