package main

import (
	"github.com/tokenized/ckb-examples/cmd/ckbexamples/cmd"
)

var (
	buildVersion = "unknown"
	buildDate    = "unknown"
	buildUser    = "unknown"
)

// CKB Examples CLI
//
func main() {
	cmd.SetBuild(buildVersion, buildDate, buildUser)
	cmd.Execute()
}
