package resolver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Prompter asks the user a yes/no question and blocks until answered.
type Prompter interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, title, message string) (bool, error)

// Confirm calls f.
func (f PrompterFunc) Confirm(ctx context.Context, title, message string) (bool, error) {
	return f(ctx, title, message)
}

// AutoConfirm answers yes to every prompt.
type AutoConfirm struct{}

// Confirm returns true unless ctx is done.
func (AutoConfirm) Confirm(ctx context.Context, _, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

// TerminalPrompter asks on a line-oriented terminal. Only "y" or "yes"
// confirm; anything else, including end of input, declines. Input is read
// from the first Confirm on; Close releases the reader.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer

	mu        sync.Mutex
	start     sync.Once
	lines     chan string
	done      chan struct{}
	closeOnce sync.Once
}

// NewTerminalPrompter reads answers from in and writes questions to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		in:    in,
		out:   out,
		lines: make(chan string),
		done:  make(chan struct{}),
	}
}

// Close stops reading answers. A read already blocked on the input returns
// once the input yields a line or ends; the line is dropped.
func (p *TerminalPrompter) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *TerminalPrompter) read() {
	defer close(p.lines)
	scanner := bufio.NewScanner(p.in)
	for scanner.Scan() {
		select {
		case p.lines <- scanner.Text():
		case <-p.done:
			return
		}
	}
}

// Confirm prints the question and waits for an answer or ctx. A closed
// prompter declines.
func (p *TerminalPrompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
		return false, nil
	default:
	}
	p.start.Do(func() { go p.read() })

	if _, err := fmt.Fprintf(p.out, "%s\n%s [y/N]: ", title, message); err != nil {
		return false, err
	}

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false, ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			fmt.Fprintln(p.out)
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
