package main

import (
	"FlowTagger/internal/cmd"
	"os"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:]))
}
