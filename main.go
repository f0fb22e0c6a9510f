package main

import "github.com/viktsys/stockcollect/cmd"

func main() {
	cmd.Execute()
}
