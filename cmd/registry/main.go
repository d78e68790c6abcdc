package main

import "github.com/vietddude/cemetery/internal/cli"

func main() {
	cli.Execute()
}
