package main

import "github.com/whitebot/whitebot/cmd"

func main() {
	cmd.Execute()
}
