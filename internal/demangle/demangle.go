// Package demangle turns raw (possibly mangled) symbol names into display
// strings. Every implementation returns its input unchanged when it cannot
// produce anything better, so callers never see a demangling failure.
package demangle

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// Demangler maps a symbol to the string shown for it.
type Demangler interface {
	Demangle(symbol string) string
}

// Func adapts a plain function to the Demangler interface.
type Func func(symbol string) string

// Demangle calls f.
func (f Func) Demangle(symbol string) string { return f(symbol) }

// Identity never changes a symbol.
var Identity Demangler = Func(func(symbol string) string { return symbol })

// DefaultCxxFilt is the c++filt binary looked up on PATH.
const DefaultCxxFilt = "c++filt"

// DefaultTimeout bounds a single c++filt run.
const DefaultTimeout = 5 * time.Second

// CxxFilt demangles Itanium C++ symbols by running c++filt once per symbol.
type CxxFilt struct {
	// Path is the c++filt executable; empty means DefaultCxxFilt.
	Path string
	// Timeout bounds each run; zero means DefaultTimeout.
	Timeout time.Duration
}

// NewCxxFilt returns a demangler backed by the c++filt found on PATH.
func NewCxxFilt() *CxxFilt {
	return &CxxFilt{Path: DefaultCxxFilt, Timeout: DefaultTimeout}
}

// Demangle runs `c++filt --no-params symbol`. Any failure (missing binary,
// non-zero exit, timeout, empty or non UTF-8 output) yields symbol unchanged.
func (c *CxxFilt) Demangle(symbol string) string {
	path := c.Path
	if path == "" {
		path = DefaultCxxFilt
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "--no-params", symbol)
	cmd.Stdout = &stdout
	// A killed c++filt can leave a child holding stdout open.
	cmd.WaitDelay = timeout
	if err := cmd.Run(); err != nil {
		return symbol
	}
	if !utf8.Valid(stdout.Bytes()) {
		return symbol
	}
	demangled := strings.TrimSpace(stdout.String())
	if demangled == "" {
		return symbol
	}
	return demangled
}
