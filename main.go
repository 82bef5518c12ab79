package main

import "tiffsrv/cmd"

func main() {
	cmd.Execute()
}
