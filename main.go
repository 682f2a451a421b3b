package main

import "github.com/herring-swe/cmake-presets/cmd"

func main() {
	cmd.Execute()
}
