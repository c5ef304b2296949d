package main

import "github.com/guardrail-dev/guardrail/internal/cli"

func main() {
	cli.Execute()
}
