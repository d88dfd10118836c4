package main

import (
	"os"

	"github.com/roach88/stockd/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
