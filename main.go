package main

import "github.com/ValentinKolb/fbook/cmd"

func main() {
	cmd.Execute()
}
