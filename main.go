package main

import "rainbowterm/cmd"

func main() {
	cmd.Execute()
}
