package main

import "github.com/Emberfield/autodoc/cmd"

func main() {
	cmd.Execute()
}
