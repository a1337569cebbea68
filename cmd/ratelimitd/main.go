// Command ratelimitd is a minimal process bootstrap around the decision
// engine: load config, build the backend and policy set, and serve the
// Acquire/Health RPC surface over a TCP listener. A production RPC
// framework, process supervision, and health-check transport are external
// collaborators — this binary exists only so the core is runnable end to
// end.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		var ee *ExitError
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, ee.Error())
			return ee.Code
		}
		fmt.Fprintln(os.Stderr, err)
		return ExitFatal
	}
	return ExitOK
}
