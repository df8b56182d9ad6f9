package main

import "github.com/ethiapath/bagcamp/cmd"

func main() {
	cmd.Execute()
}
