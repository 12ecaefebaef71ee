package main

import "github.com/jcdickinson/doclink/cmd"

func main() {
	cmd.Execute()
}
