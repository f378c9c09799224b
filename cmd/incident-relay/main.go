package main

import "github.com/youmna-rabie/incident-relay/internal/cli"

func main() {
	cli.Execute()
}
