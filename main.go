package main

import "github.com/tanpawarit/Chative-Voice-Agents/cmd"

func main() {
	cmd.Execute()
}
