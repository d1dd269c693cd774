// Package main is the entry point for the sunset CLI.
package main

import "sunset.dev/pkg/sunset/cmd"

func main() {
	cmd.Execute()
}
