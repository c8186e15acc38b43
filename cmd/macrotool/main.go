// Command macrotool plays desktop macros.
package main

import "github.com/Matsurin0303/MacroTool-sub000/pkg/cli"

func main() {
	cli.Execute()
}
