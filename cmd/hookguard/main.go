package main

import "github.com/hookguard/hookguard/internal/cli"

func main() {
	cli.Execute()
}
