package main

import "github.com/lukman83/koalaswap-seed/cmd"

func main() {
	cmd.Execute()
}
