package main

import "github.com/yapay-ai/provider-sentinel/internal/cli"

func main() {
	cli.Execute()
}
