package main

import (
	"os"
	_ "time/tzdata"

	"github.com/dl-alexandre/mrisync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
