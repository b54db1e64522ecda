package main

import "github.com/rohmanhakim/polite-crawler/internal/cli"

func main() {
	cli.Execute()
}
