package main

import (
	"github.com/faiface/pixel/pixelgl"

	"github.com/arjunkrish/chippy8/cmd"
)

func main() {
	// pixelgl needs access to the main thread, so the cobra command tree
	// runs inside pixelgl.Run rather than being invoked directly.
	pixelgl.Run(cmd.Execute)
}
