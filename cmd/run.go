package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arjunkrish/chippy8/internal/audio"
	"github.com/arjunkrish/chippy8/internal/chip8"
	"github.com/arjunkrish/chippy8/internal/presenter"
	"github.com/arjunkrish/chippy8/internal/rom"
)

const (
	defaultIPS   = 700
	defaultScale = 12
	frameRate    = 60
	beepAsset    = "assets/beep.mp3"
)

var (
	modeFlag  string
	ipsFlag   int
	scaleFlag float64
	muteFlag  bool
)

// runCmd runs the chippy8 virtual machine against a ROM file until the
// presenter window is closed.
var runCmd = &cobra.Command{
	Use:   "run path/to/rom",
	Short: "run the chippy8 emulator against a ROM file",
	Args:  cobra.ExactArgs(1),
	Run:   runChippy8,
}

func init() {
	runCmd.Flags().StringVar(&modeFlag, "mode", "cosmac", "compatibility mode: cosmac or schip")
	runCmd.Flags().IntVar(&ipsFlag, "ips", defaultIPS, "target instructions executed per second")
	runCmd.Flags().Float64Var(&scaleFlag, "scale", defaultScale, "window pixels per CHIP-8 pixel")
	runCmd.Flags().BoolVar(&muteFlag, "mute", false, "disable the sound timer's beep output")
}

func runChippy8(cmd *cobra.Command, args []string) {
	pathToROM := args[0]

	mode, err := parseMode(modeFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	romBytes, err := rom.Load(pathToROM)
	if err != nil {
		fmt.Printf("error loading rom: %v\n", err)
		os.Exit(1)
	}

	vm, err := chip8.New(romBytes, mode)
	if err != nil {
		fmt.Printf("error creating chip8 vm: %v\n", err)
		os.Exit(1)
	}

	win, err := presenter.NewWindow(fmt.Sprintf("chippy8 - %s", pathToROM), scaleFlag)
	if err != nil {
		fmt.Printf("error creating window: %v\n", err)
		os.Exit(1)
	}

	sink := audio.NewSink(beepAsset)
	if muteFlag {
		sink.Mute()
	}
	defer sink.Close()

	runLoop(vm, win, sink, ipsFlag)
}

func parseMode(s string) (chip8.Mode, error) {
	switch s {
	case "cosmac", "":
		return chip8.CosmacVIP, nil
	case "schip":
		return chip8.SuperChip, nil
	default:
		return chip8.CosmacVIP, fmt.Errorf("unknown --mode %q: want cosmac or schip", s)
	}
}

// runLoop drives the VM per spec: input is polled once per frame, the
// 60 Hz timer tick is driven by a wall-clock accumulator independent of
// step cadence, and ips/frameRate instructions are executed per frame.
func runLoop(vm *chip8.VM, win *presenter.Window, sink *audio.Sink, ips int) {
	ticker := chip8.NewTicker()
	stepsPerFrame := ips / frameRate
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}

	frameInterval := time.Second / frameRate
	last := time.Now()

	for !win.Closed() {
		now := time.Now()
		elapsed := now.Sub(last)
		last = now

		keys := win.PollKeys()
		ticker.Drive(vm, elapsed)

		for i := 0; i < stepsPerFrame; i++ {
			out := vm.Step(keys)
			if out.Kind == chip8.StepFault {
				fmt.Printf("fatal fault: %v\n", out.Err)
				return
			}
		}

		if vm.FrameBuffer().Dirty() {
			win.Draw(vm.FrameBuffer().View())
			vm.FrameBuffer().ClearDirty()
		}
		sink.Sync(vm.SoundActive())

		time.Sleep(frameInterval - time.Since(now))
	}
}
