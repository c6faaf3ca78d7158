// Package main provides the rowkeeper CLI.
package main

import "github.com/mesh-intelligence/rowkeeper/internal/cli"

func main() {
	cli.Execute()
}
