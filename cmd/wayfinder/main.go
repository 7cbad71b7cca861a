package main

import "github.com/MikeSquared-Agency/wayfinder/internal/cli"

func main() {
	cli.Execute()
}
