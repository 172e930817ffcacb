package main

import "player-trade/internal/cli"

func main() {
	cli.Execute()
}
