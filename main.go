package main

import "bom-manager/cmd"

func main() {
	cmd.Execute()
}
