package main

import (
	"fmt"
	"os"
)

// fmtLogger adapts the CLI's plain-fmt.Fprintf style (the same style
// cmd/cm's app.go uses throughout) to the inbox engine's Logger
// interface, instead of pulling zap into a one-shot process.
type fmtLogger struct{}

func (fmtLogger) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "atm: warning: "+format+"\n", args...)
}
