// Command learn validates curricula, generates lesson notebooks and records
// learner progress.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
