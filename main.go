package main

import "github.com/qrave1/TaleRoom/cmd"

func main() {
	cmd.Execute()
}
