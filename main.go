package main

import "github.com/genomehc/hcverify/cmd"

func main() {
	cmd.Execute()
}
