package main

import "github.com/autotally/tallybridge/cmd"

func main() {
	cmd.Execute()
}
