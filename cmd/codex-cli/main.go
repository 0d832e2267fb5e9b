package main

import "codex/cmd/codex-cli/cmd"

func main() {
	cmd.Execute()
}
