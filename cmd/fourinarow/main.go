package main

import "github.com/mcoot/fourinarow/internal/cli"

func main() {
	cli.Execute()
}
