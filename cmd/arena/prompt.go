package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"arena/internal/reprocess"
)

// promptConfirmer asks the operator on a terminal whether to keep a
// transcript that does not mention either team.
type promptConfirmer struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{reader: bufio.NewReader(in), out: out}
}

// ConfirmIntegrity prints the prompt and waits for an answer. Anything other
// than y/yes declines, as does end of input.
func (p *promptConfirmer) ConfirmIntegrity(ctx context.Context, prompt reprocess.Prompt) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "The %s transcript (%s) mentions neither %q nor %q.\n",
		halfName(prompt.Half), prompt.Source, prompt.HomeTeam, prompt.AwayTeam)
	if prompt.Excerpt != "" {
		fmt.Fprintf(p.out, "  %q\n", prompt.Excerpt)
	}
	fmt.Fprint(p.out, "Continue with this transcript? [y/N]: ")

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := p.reader.ReadString('\n')
		answers <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false, ctx.Err()
	case a := <-answers:
		if a.err != nil && a.line == "" {
			fmt.Fprintln(p.out)
			if a.err == io.EOF {
				return false, nil
			}
			return false, fmt.Errorf("read answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

func halfName(half string) string {
	switch half {
	case "first":
		return "first-half"
	case "second":
		return "second-half"
	case "full":
		return "full-match"
	default:
		return half
	}
}
