package main

import "docvec/internal/cli"

func main() {
	cli.Execute()
}
