package main

import "github/chapool/contract-gateway/cmd"

func main() {
	cmd.Execute()
}
