package main

import (
	"github.com/daurydicaprio/nasback/internal/cli"
)

func main() {
	cli.Execute()
}
