package main

import "github.com/fakeyudi/tally/cmd"

func main() {
	cmd.Execute()
}
