package main

import "github.com/requiem-ai/relaybot/cli"

func main() {
	cli.Execute()
}
