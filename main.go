package main

import (
	"os"

	"github.com/s-archdev/mithra-llm/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
