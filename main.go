package main

import "github.com/chrisdamba/ghostkitchen/cmd"

func main() {
	cmd.Execute()
}
