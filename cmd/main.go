package main

import "github.com/lognitor/go-tracer/cli/cmd"

func main() {
	cmd.Execute()
}
