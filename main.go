package main

import "github.com/code-sleuth/ike-tube/cmd"

func main() {
	cmd.Execute()
}
