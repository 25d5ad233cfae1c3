package main

import (
	"github.com/foomo/objectstore/cmd"
)

func main() {
	cmd.Execute()
}
