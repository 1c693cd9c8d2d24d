package main

import (
	"os"

	"staffdesk/cmd/staffdesk/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, nil))
}
