package main

import "github.com/bz888/seally/cmd"

func main() {
	cmd.Execute()
}
