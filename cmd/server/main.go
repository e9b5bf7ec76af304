package main

import "github.com/devinvista/Trip-sub001/internal/cli"

func main() {
	cli.Execute()
}
