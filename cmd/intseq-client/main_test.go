package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/illmade-knight/go-intseq/pkg/seqservice"
	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg, err := sequence.NewDefaultRegistry(sequence.NewEngines(), nil)
	require.NoError(t, err)
	mux := http.NewServeMux()
	seqservice.NewHandler(seqservice.New(reg), zerolog.Nop()).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestShorten(t *testing.T) {
	fifty := strings.Repeat("7", 50)
	assert.Equal(t, fifty, shorten(fifty))

	long := "1234567890123456789000000000000009876543210987654321X"
	assert.Equal(t, "12345678901234567890...[13 digits skipped]...9876543210987654321X", shorten(long))
}

func TestParseArgs(t *testing.T) {
	name, indices, err := parseArgs([]string{"fib", "5", "6"})
	require.NoError(t, err)
	assert.Equal(t, "fib", name)
	assert.Equal(t, []int{5, 6}, indices)

	_, _, err = parseArgs(nil)
	assert.Equal(t, 2, exitCode(err))

	_, _, err = parseArgs([]string{"fib", "x"})
	assert.Equal(t, 2, exitCode(err))

	tooMany := []string{"fib"}
	for i := 0; i <= seqservice.DefaultMaxQuerySize; i++ {
		tooMany = append(tooMany, strconv.Itoa(i))
	}
	_, _, err = parseArgs(tooMany)
	assert.ErrorContains(t, err, "specify no more than 100")
	assert.Equal(t, 2, exitCode(err))
}

func TestClientCommand(t *testing.T) {
	srv := newServer(t)

	t.Run("Batch request", func(t *testing.T) {
		out, err := execute(t, "--server", srv.URL, "fib", "5", "6", "-1")

		require.NoError(t, err)
		assert.Contains(t, out, "Getting service by sequence name 'fib'...\n")
		assert.Contains(t, out, "Connected to service 'Fibonacci numbers (Go)' (name: fib.go)\n")
		assert.Contains(t, out, "Performing batch request fib([5, 6, -1])\n")
		assert.Contains(t, out, "fib(5) = 5\nfib(6) = 8\nError getting fib(-1): Index cannot be negative\n")
	})

	t.Run("Separate requests with shortened output", func(t *testing.T) {
		out, err := execute(t, "--server", srv.URL, "--seq", "--short", "pow2.go", "3", "200")

		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(out, "Performing request pow2("))
		assert.Contains(t, out, "pow2(3) = 8\n")
		// 2^200 has 61 digits.
		assert.Contains(t, out, "pow2(200) = 16069380442589902755...[21 digits skipped]...")
	})

	t.Run("Negative indices are positional", func(t *testing.T) {
		out, err := execute(t, "--server", srv.URL, "--seq", "pow3", "-2", "2")

		require.NoError(t, err)
		assert.Contains(t, out, "Error getting pow3(-2): Index cannot be negative\n")
		assert.Contains(t, out, "pow3(2) = 9\n")
	})

	t.Run("Lists implementations", func(t *testing.T) {
		out, err := execute(t, "--server", srv.URL, "--list")

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "Registered sequence implementations:\n"))
		assert.Contains(t, out, "Sequence ID: rnd-prime, kind: go\n")
	})

	t.Run("Unknown sequence is a service error", func(t *testing.T) {
		_, err := execute(t, "--server", srv.URL, "nope", "1")

		require.ErrorIs(t, err, sequence.ErrNotFound)
		assert.Equal(t, 1, exitCode(err))
	})

	t.Run("Unknown flag is an argument error", func(t *testing.T) {
		_, err := execute(t, "--bogus")
		assert.Equal(t, 2, exitCode(err))
	})
}
