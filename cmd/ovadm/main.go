package main

import "github.com/doogleit/hpe-oneview-misc/cmd/ovadm/cmd"

func main() {
	cmd.Execute()
}
