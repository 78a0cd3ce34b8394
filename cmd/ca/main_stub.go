//go:build !ebiten

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "ca: this binary was built without the viewer.")
	fmt.Fprintln(os.Stderr, "build it with -tags ebiten, or run the sims headless with ./cmd/model")
	os.Exit(2)
}
