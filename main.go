// Command tada is the `go install github.com/Makepad-fr/tada@latest` entry
// point; it is the same program as cmd/todo.
package main

import (
	"os"

	"github.com/Makepad-fr/tada/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
