// Command uniqsort writes the distinct normalized tokens of a text file in
// ascending order, using bounded memory regardless of the input size.
//
//	uniqsort sort [flags] <input> <output>
//	uniqsort preview [flags] <file>...
package main

import (
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"UniqSort/internal/config"
	"UniqSort/internal/pipeline"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	// exitPartial: the output was written but some input was lost.
	exitPartial = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := &application{stdout: stdout, stderr: stderr}
	parser := flags.NewParser(&app.global, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "uniqsort"

	if _, err := parser.AddCommand("sort",
		"Sort and deduplicate the tokens of a file",
		"Partitions the input into sorted chunks of at most --capacity distinct tokens, "+
			"then merges them into the output, each token once, in byte order.",
		&sortCommand{app: app}); err != nil {
		panic(err)
	}
	if _, err := parser.AddCommand("preview",
		"Print the first lines of files",
		"Prints the first --lines non-blank lines of each file and counts its non-blank lines.",
		&previewCommand{app: app}); err != nil {
		panic(err)
	}
	if _, err := parser.AddCommand("version", "Print the version", "", &versionCommand{app: app}); err != nil {
		panic(err)
	}

	_, err := parser.ParseArgs(args)
	return app.exitCode(err)
}

func (a *application) exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) {
		if flagsErr.Type == flags.ErrHelp {
			io.WriteString(a.stdout, flagsErr.Message+"\n")
			return exitOK
		}
		io.WriteString(a.stderr, flagsErr.Message+"\n")
		return exitUsage
	}

	if a.logger != nil {
		a.logger.WithError(err).Error("uniqsort failed")
	} else {
		io.WriteString(a.stderr, "uniqsort: "+err.Error()+"\n")
	}

	switch {
	case errors.Is(err, config.ErrInvalid), errors.Is(err, pipeline.ErrInvalidOptions):
		return exitUsage
	case errors.Is(err, pipeline.ErrPartialResult):
		return exitPartial
	default:
		return exitFailure
	}
}
