package main

import "github.com/AmmannChristian/go-gcpapis/internal/cli"

func main() {
	cli.Execute()
}
