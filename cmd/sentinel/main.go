package main

import "github.com/oshokin/power-sentinel/cmd/sentinel/cmd"

func main() {
	cmd.Execute()
}
