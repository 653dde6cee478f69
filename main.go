package main

import "github.com/skevetter/echod/cmd"

func main() {
	cmd.Execute()
}
