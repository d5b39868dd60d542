// Command intensity computes instrumental seismic intensity from decoded
// strong-motion records, either once over a set of files (run) or
// continuously over an input directory (watch).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
