// Command voiceorder is a push-to-talk ordering assistant.
package main

import "github.com/teslashibe/go-voiceorder/internal/cli"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Execute(version)
}
