/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/mnistidx/cmd/mnist/cmd"

func main() {
	cmd.Execute()
}
