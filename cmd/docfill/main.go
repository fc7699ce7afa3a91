// Command docfill fills Word templates from data files on the command line.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "docfill:", err)
		os.Exit(1)
	}
}
