package main

import "github.com/MeKo-Tech/underpass/internal/cmd"

func main() {
	cmd.Execute()
}
