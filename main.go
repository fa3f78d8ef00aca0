package main

import (
	"runtime"

	"github.com/supersonic-app/trackplayer-bridge/cmd"
)

func init() {
	// the macOS media session must be serviced from the main thread
	runtime.LockOSThread()
}

func main() {
	cmd.Execute()
}
