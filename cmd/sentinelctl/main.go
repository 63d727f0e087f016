package main

import "github.com/oshokin/power-sentinel/cmd/sentinelctl/cmd"

func main() {
	cmd.Execute()
}
