// Package audio drives a beep sink from the VM's sound timer state, kept
// as its own package so the core carries no audio dependency.
package audio

import (
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Sink plays a looping beep.mp3 for as long as the source it polls reports
// sound as active, and stops it the moment that source goes quiet.
type Sink struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	playing  bool
	muted    bool
}

// NewSink opens assetPath (an mp3 file) and initializes the speaker. If the
// asset cannot be opened or decoded, NewSink returns a Sink that silently
// no-ops — a missing beep asset should never prevent the emulator from
// running.
func NewSink(assetPath string) *Sink {
	f, err := os.Open(assetPath)
	if err != nil {
		return &Sink{muted: true}
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		return &Sink{muted: true}
	}

	speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))

	return &Sink{streamer: streamer, format: format}
}

// Mute permanently silences this sink (e.g. a --mute CLI flag).
func (s *Sink) Mute() {
	s.muted = true
}

// Sync plays or stops the beep loop to match active. A host calls this
// once per frame with vm.SoundActive().
func (s *Sink) Sync(active bool) {
	if s.muted || s.streamer == nil {
		return
	}
	if active && !s.playing {
		s.streamer.Seek(0)
		speaker.Play(beep.Loop(-1, s.streamer))
		s.playing = true
	} else if !active && s.playing {
		speaker.Clear()
		s.playing = false
	}
}

// Close releases the underlying audio stream.
func (s *Sink) Close() error {
	if s.streamer == nil {
		return nil
	}
	return s.streamer.Close()
}
