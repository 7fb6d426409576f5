package main

import (
	"os"

	"github.com/storeforge/catsync/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
