package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/illmade-knight/go-intseq/pkg/seqservice"
	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"github.com/spf13/cobra"
)

// Under --short, numbers longer than shortenAbove digits keep only
// shortenKeep digits at each end.
const (
	shortenAbove = 50
	shortenKeep  = 20
)

func run(cmd *cobra.Command, opts *options, args []string) error {
	client := seqservice.NewClient(opts.server, &http.Client{Timeout: opts.timeout})
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if opts.list {
		list, err := client.Sequences(ctx)
		if err != nil {
			return err
		}
		return sequence.WriteInfo(out, list.Sequences)
	}

	name, indices, err := parseArgs(args)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Getting service by sequence name '%s'...\n", name)
	info, err := client.Describe(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to service '%s' (name: %s)\n", info.Title, info.Name)

	p := printer{w: out, id: info.Name.ID, short: opts.short}
	if opts.seq {
		for _, i := range indices {
			if err := p.single(ctx, client, info.Name.String(), i); err != nil {
				return err
			}
		}
		return nil
	}
	return p.batch(ctx, client, info.Name.String(), indices)
}

type printer struct {
	w     io.Writer
	id    string
	short bool
}

func (p printer) single(ctx context.Context, client *seqservice.Client, name string, index int) error {
	fmt.Fprintf(p.w, "Performing request %s(%d)\n", p.id, index)
	start := time.Now()
	resp, err := client.Number(ctx, name, index)
	if err != nil {
		return err
	}
	p.completed(start)
	p.value(index, resp)
	return nil
}

func (p printer) batch(ctx context.Context, client *seqservice.Client, name string, indices []int) error {
	strs := make([]string, len(indices))
	for i, idx := range indices {
		strs[i] = strconv.Itoa(idx)
	}
	fmt.Fprintf(p.w, "Performing batch request %s([%s])\n", p.id, strings.Join(strs, ", "))
	start := time.Now()
	resps, err := client.Numbers(ctx, name, indices)
	if err != nil {
		return err
	}
	p.completed(start)
	for i, resp := range resps {
		p.value(indices[i], resp)
	}
	return nil
}

func (p printer) completed(start time.Time) {
	fmt.Fprintf(p.w, "Request completed in %.3f ms\n", float64(time.Since(start).Microseconds())/1000)
}

func (p printer) value(index int, resp sequence.Response) {
	switch resp.Kind {
	case sequence.KindError:
		fmt.Fprintf(p.w, "Error getting %s(%d): %s\n", p.id, index, resp.Message)
	case sequence.KindInt:
		fmt.Fprintf(p.w, "%s(%d) = %d\n", p.id, index, resp.Int)
	default:
		digits := resp.Text
		if p.short {
			digits = shorten(digits)
		}
		fmt.Fprintf(p.w, "%s(%d) = %s\n", p.id, index, digits)
	}
}

// shorten keeps the first and last 20 digits of numbers longer than 50.
func shorten(digits string) string {
	if len(digits) <= shortenAbove {
		return digits
	}
	skipped := len(digits) - 2*shortenKeep
	return fmt.Sprintf("%s...[%d digits skipped]...%s", digits[:shortenKeep], skipped, digits[len(digits)-shortenKeep:])
}
