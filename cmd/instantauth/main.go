// Command instantauth provisions sessions and issues, opens and serves
// instantauth blobs from the command line.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
