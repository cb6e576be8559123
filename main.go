package main

import "github.com/kebairia/mcutil/cmd"

func main() {
	cmd.Execute()
}
