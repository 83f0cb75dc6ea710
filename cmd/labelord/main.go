package main

import "labelord/internal/cmd"

func main() {
	cmd.Execute()
}
