package main

import "bridge-wrapped/internal/cli"

func main() {
	cli.Execute()
}
