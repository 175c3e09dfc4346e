// Package main is the entry point for the fareflow application
package main

import (
	"github.com/fareflow/fareflow/cmd"
)

func main() {
	cmd.Execute()
}
