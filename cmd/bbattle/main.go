package main

import "github.com/mcoot/blockbattle/internal/cli"

func main() {
	cli.Execute()
}
