// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package linesource

import (
	"fmt"
)

// tailLogger sends the tail package's log output to loggo. Tail calls the
// Fatal and Panic variants for conditions that end a single tail, not the
// process, so they are logged as errors.
type tailLogger struct{}

func (tailLogger) Fatal(args ...interface{}) {
	logger.Errorf("%s", fmt.Sprint(args...))
}

func (tailLogger) Fatalf(msg string, args ...interface{}) {
	logger.Errorf(msg, args...)
}

func (tailLogger) Fatalln(args ...interface{}) {
	logger.Errorf("%s", fmt.Sprint(args...))
}

func (tailLogger) Panic(args ...interface{}) {
	logger.Errorf("%s", fmt.Sprint(args...))
}

func (tailLogger) Panicf(msg string, args ...interface{}) {
	logger.Errorf(msg, args...)
}

func (tailLogger) Panicln(args ...interface{}) {
	logger.Errorf("%s", fmt.Sprint(args...))
}

func (tailLogger) Print(args ...interface{}) {
	logger.Debugf("%s", fmt.Sprint(args...))
}

func (tailLogger) Printf(msg string, args ...interface{}) {
	logger.Debugf(msg, args...)
}

func (tailLogger) Println(args ...interface{}) {
	logger.Debugf("%s", fmt.Sprint(args...))
}
