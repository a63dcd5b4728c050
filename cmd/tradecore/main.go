// Command tradecore is the host process entrypoint: it delegates
// entirely to the cobra command tree in internal/cmd, which loads
// configuration, builds strategies, and runs the engine.
package main

import "tradecore/internal/cmd"

func main() {
	cmd.Execute()
}
