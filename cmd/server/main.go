package main

import (
	"github.com/joho/godotenv"

	"github.com/web3-frozen/yield-engine/internal/cli"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	cli.Execute()
}
