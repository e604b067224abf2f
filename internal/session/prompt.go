package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// NamePrompter asks for the name of the subject about to be enrolled. It
// blocks until a name is available or ctx is done.
type NamePrompter interface {
	PromptName(ctx context.Context) (string, error)
}

// PromptFunc adapts a function to NamePrompter.
type PromptFunc func(ctx context.Context) (string, error)

// PromptName calls f.
func (f PromptFunc) PromptName(ctx context.Context) (string, error) {
	return f(ctx)
}

// ConsolePrompter reads the name as one line from an input stream.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer

	// pending carries a read abandoned by a cancelled prompt; the next
	// prompt picks it up instead of reading concurrently.
	pending chan readResult
}

type readResult struct {
	line string
	err  error
}

// NewConsolePrompter creates a prompter reading from in and writing the
// prompt to out.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewReader(in), out: out}
}

// PromptName prints "Please enter your name:" and returns the next line,
// trimmed of surrounding whitespace.
func (p *ConsolePrompter) PromptName(ctx context.Context) (string, error) {
	fmt.Fprintln(p.out, "Please enter your name:")

	if p.pending == nil {
		ch := make(chan readResult, 1)
		go func() {
			line, err := p.in.ReadString('\n')
			ch <- readResult{line, err}
		}()
		p.pending = ch
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-p.pending:
		p.pending = nil
		if r.err != nil && !(errors.Is(r.err, io.EOF) && r.line != "") {
			return "", fmt.Errorf("read name: %w", r.err)
		}
		return strings.TrimSpace(r.line), nil
	}
}
