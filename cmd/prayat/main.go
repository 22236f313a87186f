package main

import (
	"os"

	"prayat/cmd/prayat/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, &cmd.Config{}))
}
