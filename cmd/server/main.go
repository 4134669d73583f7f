package main

import "github.com/nariz-encantado/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
