package main

import "github.com/HH-Alex-Ma/xarl-email-agent/internal/cli"

func main() {
	cli.Execute()
}
