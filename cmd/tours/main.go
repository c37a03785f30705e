// Command tours runs the showing-tours API, its notification worker and the
// schema migrations. Its sole responsibility is dispatching to internal/cli.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkordes/showing-tours/internal/cli"
)

func main() {
	if err := cli.NewRoot().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
