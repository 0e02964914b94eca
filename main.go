package main

import "github.com/Zerofisher/marinedb/cmd"

func main() {
	cmd.Execute()
}
