package main

import (
	"github.com/pressgen/pressgen/cmd"
)

func main() {
	cmd.Execute()
}
