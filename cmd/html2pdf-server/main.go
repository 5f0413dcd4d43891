// Command html2pdf-server serves the HTML and URL to PDF conversion API.
//
// Usage:
//
//	html2pdf-server [serve] [flags]
//	html2pdf-server doctor [--json] [flags]
//
// Configuration is layered: built-in defaults, then the YAML file named by
// --config or HTML2PDF_CONFIG, then .env, then HTML2PDF_* variables, then flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-html2pdf/internal/config"
	"github.com/alnah/go-html2pdf/internal/hints"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := notifyContext(context.Background())
	code := run(ctx, os.Args[1:], DefaultEnv())
	stop()
	os.Exit(code)
}

// run dispatches the subcommand and returns the process exit code.
func run(ctx context.Context, args []string, env *Environment) int {
	if len(args) > 0 {
		switch args[0] {
		case "doctor":
			return runDoctorCmd(args[1:], env)
		case "serve":
			args = args[1:]
		}
	}

	err := runServe(ctx, args, env)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}

	fmt.Fprintf(env.Stderr, "html2pdf-server: %v%s\n", err, hintFor(err))
	return exitCodeFor(err)
}

// hintFor returns an actionable hint for startup errors, or "".
func hintFor(err error) string {
	var nf *config.NotFoundError
	if errors.As(err, &nf) {
		return hints.ForConfigNotFound(nf.Tried)
	}
	return ""
}
