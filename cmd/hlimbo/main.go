package main

import "github.com/mcoot/hardcorelimbo/internal/cli"

func main() {
	cli.Execute()
}
