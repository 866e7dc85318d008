//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package main

import "github.com/blacktop/cimage/cmd/cimage/cmd"

func main() {
	cmd.Execute()
}
