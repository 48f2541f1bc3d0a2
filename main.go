package main

import "solana-m/cmd"

func main() {
	cmd.Execute()
}
