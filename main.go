package main

import (
	"os"

	"github.com/Abdullahalhasan627/ShieldAI/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
