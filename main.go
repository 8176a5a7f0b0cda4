package main

import "github.com/encodeous/mylar/cmd"

func main() {
	cmd.Execute()
}
