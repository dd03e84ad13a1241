package main

import "github.com/strrl/chat-history/cmd/chat-history/commands"

func main() {
	commands.Execute()
}
