package main

import (
	"fmt"
	"os"

	"github.com/imkarma/studier/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %v\n", err)
		os.Exit(1)
	}
}
