// Released under an MIT license. See LICENSE.

// Package ui provides the interactive interface for enclave.
package ui

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/peterh/liner"

	"github.com/michaelmacinnis/enclave/internal/reader"
	"github.com/michaelmacinnis/enclave/internal/system/history"
)

// Evaluator is the interface for things that want to run complete units
// of input.
type Evaluator interface {
	Evaluate(source string)

	// Names returns the names visible to the next unit. They are used for
	// completion.
	Names() []string
}

// Prompts.
const (
	Primary   = ">>> "
	Secondary = "... "
)

// Run reads units of input until end of input and sends each one to e.
// Syntax errors are written to stderr.
func Run(e Evaluator, stderr io.Writer) error {
	cli := liner.NewLiner()
	defer cli.Close()

	cli.SetCtrlCAborts(true)
	cli.SetMultiLineMode(true)
	cli.SetWordCompleter(func(line string, pos int) (string, []string, string) {
		return complete(e.Names(), line, pos)
	})

	// The history file is missing on first use.
	_ = history.Load(cli.ReadHistory)

	defer func() {
		_ = history.Save(cli.WriteHistory)
	}()

	r := reader.New("<stdin>")

	for {
		prompt := Primary
		if r.Pending() {
			prompt = Secondary
		}

		line, err := cli.Prompt(prompt)

		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			r.Reset()

			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(stderr)

			return nil
		case err != nil:
			return err
		}

		if strings.TrimSpace(line) != "" {
			cli.AppendHistory(line)
		}

		m, err := r.Scan(line)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())

			continue
		}

		if m != nil {
			e.Evaluate(r.Text())
		}
	}
}

// complete offers the names that extend the identifier before pos.
func complete(names []string, line string, pos int) (string, []string, string) {
	head, tail := line[:pos], line[pos:]

	start := strings.LastIndexFunc(head, func(r rune) bool {
		return r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) + 1

	word := head[start:]
	if word == "" {
		return head, nil, tail
	}

	var cs []string

	for _, name := range names {
		if strings.HasPrefix(name, word) {
			cs = append(cs, name)
		}
	}

	sort.Strings(cs)

	return head[:start], cs, tail
}
