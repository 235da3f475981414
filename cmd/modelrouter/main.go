package main

import (
	"github.com/promptlab/modelrouter/internal/cli"
)

func main() {
	cli.Execute()
}
