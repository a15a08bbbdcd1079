package main

import (
	"fmt"
	"os"

	"github.com/usaproje/go-smsbert/inference"
)

// Set by the build via -ldflags.
var (
	version = "dev"
	commit  = ""
	date    = ""
)

func versionString() string {
	v := version
	if commit != "" {
		v += " (" + commit
		if date != "" {
			v += ", " + date
		}
		v += ")"
	}
	return v
}

func main() {
	err := NewRootCmd().Execute()

	if shutdownErr := inference.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
