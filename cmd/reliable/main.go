// Command reliable is a small CLI driver around the reliable-endpoint
// library, useful for manual testing and for driving the package's
// NetSimTransport from the shell.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
)

func main() {
	ctx := dgroup.WithGoroutineName(context.Background(), "/reliable")
	if err := Command().ExecuteContext(ctx); err != nil {
		dlog.Errorf(ctx, "%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
