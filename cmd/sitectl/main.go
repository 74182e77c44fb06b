package main

import "grahalia-estates/internal/cli"

func main() {
	cli.Execute()
}
