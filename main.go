package main

import "github.com/joshdurbin/activity-export/internal/cmd"

func main() {
	cmd.Execute()
}
