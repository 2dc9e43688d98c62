package main

import "github.com/oshokin/catpoint/cmd/catpoint-checker/cmd"

func main() {
	cmd.Execute()
}
