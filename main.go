package main

import "hpackCodec/cmd"

func main() {
	cmd.Execute()
}
