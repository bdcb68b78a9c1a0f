package main

import "github.com/jamesbehr/rip/cmd"

func main() {
	cmd.Execute()
}
