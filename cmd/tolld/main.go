package main

import "github.com/tollhouse/tolld/internal/cli"

func main() {
	cli.Execute()
}
