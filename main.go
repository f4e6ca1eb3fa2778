package main

import "github.com/mkaplan/mixsmith/cmd"

func main() {
	cmd.Execute()
}
