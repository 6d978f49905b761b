package main

import (
	"os"

	"github.com/dshills/issuelens/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
