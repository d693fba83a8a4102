package main

import (
	"os"

	"github.com/telhawk-systems/telhawk-reporting/cmd"
	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(models.ExitCode(err))
	}
}
