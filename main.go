package main

import "github.com/workclock/workclock/cmd"

func main() {
	cmd.Execute()
}
