package main

import "github.com/nextlevelbuilder/mascot/cmd"

func main() {
	cmd.Execute()
}
