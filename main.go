package main

import "threadweave/cmd"

func main() {
	cmd.Execute()
}
