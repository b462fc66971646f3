package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; environment wins over config files either way.
	_ = godotenv.Load()
	Execute()
}
