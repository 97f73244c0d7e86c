package main

import "github.com/epicmotionSD/openconductor-sub010/cmd"

// Version can be set during build with -ldflags
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
