package main

import "github.com/oar-cd/berth/cmd/root"

func main() {
	root.Execute()
}
