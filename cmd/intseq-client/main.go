// Package main is the entry point for the intseq-client binary, which
// retrieves members of integer sequences from an intseq-server.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/illmade-knight/go-intseq/pkg/seqservice"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

// usageError marks failures caused by the command line itself.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code := exitCode(err)
		if code == 2 {
			fmt.Fprintln(os.Stderr, "Invoke with `--help` option to get help.")
		}
		os.Exit(code)
	}
}

func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

type options struct {
	server  string
	timeout time.Duration
	seq     bool
	batch   bool
	short   bool
	list    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "intseq-client [flags] (sequence-ID | service-ID) index...",
		Short: "Retrieve members of integer sequences",
		Long: `Retrieves members of integer sequences from an intseq-server.

Sequence ID is the identifier of an integer sequence, e.g. 'fib' (Fibonacci
numbers). Service ID is the identifier of a particular implementation of a
sequence: a sequence ID, a dot, and a kind, e.g. 'pow3.go-naive'.

Indices are non-negative integers. Indexing starts with zero; e.g.
fib(0) = 0 and fib(1) = 1.`,
		Example: `  intseq-client fib 5 6 7
  intseq-client --seq --short primes.go 10000 20000`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}
	if env, ok := os.LookupEnv("INTSEQ_SERVER"); ok {
		opts.server = env
	} else {
		opts.server = defaultServer
	}
	cmd.Flags().StringVarP(&opts.server, "server", "s", opts.server, "Base URL of the intseq-server (env INTSEQ_SERVER)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "Timeout of each request")
	cmd.Flags().BoolVar(&opts.seq, "seq", false, "Perform a separate request for each index")
	cmd.Flags().BoolVar(&opts.batch, "batch", false, "Perform a batch request for all indices (default; --seq wins)")
	cmd.Flags().BoolVar(&opts.short, "short", false, "Print only the first and last 20 digits of long numbers")
	cmd.Flags().BoolVar(&opts.list, "list", false, "Print the list of registered implementations and exit")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return &usageError{err} })
	// Flags end at the sequence name, so negative indices such as -1 reach
	// the server and are answered there.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// parseArgs splits the positional arguments into a sequence name and indices.
func parseArgs(args []string) (string, []int, error) {
	if len(args) == 0 {
		return "", nil, &usageError{errors.New("no sequence specified")}
	}
	indices := make([]int, 0, len(args)-1)
	for _, arg := range args[1:] {
		i, err := strconv.Atoi(arg)
		if err != nil {
			return "", nil, &usageError{fmt.Errorf("invalid index %q", arg)}
		}
		indices = append(indices, i)
	}
	if len(indices) > seqservice.DefaultMaxQuerySize {
		return "", nil, &usageError{fmt.Errorf("too many indices specified, specify no more than %d", seqservice.DefaultMaxQuerySize)}
	}
	return args[0], indices, nil
}
