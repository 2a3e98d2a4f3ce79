package main

import (
	"os"

	"github.com/joho/godotenv"

	"media2txt/internal/cli"
)

func main() {
	// Optional .env next to the binary; real environment variables win.
	_ = godotenv.Load()

	os.Exit(cli.Execute(os.Args[1:]))
}
