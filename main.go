package main

import (
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/cmd"
)

func main() {
	cmd.Execute()
}
