// Package prompt provides the line-oriented console used by the interactive
// resolution loops. Tests drive it with scripted input.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrClosed is returned when input ends before an answer was given.
var ErrClosed = errors.New("input closed")

// Console reads one answer per line and writes menus and tables.
type Console struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

// New creates a console. The prompt is printed before every read.
func New(in io.Reader, out io.Writer, prompt string) *Console {
	return &Console{in: bufio.NewReader(in), out: out, prompt: prompt}
}

// Ask prints the prompt and returns the next line without surrounding
// whitespace. A final line without a newline is still returned; after that
// Ask fails with ErrClosed.
func (c *Console) Ask() (string, error) {
	if c.prompt != "" {
		fmt.Fprint(c.out, c.prompt)
	}
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Printf writes formatted output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Println writes its arguments followed by a newline.
func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// Writer exposes the output for table rendering.
func (c *Console) Writer() io.Writer {
	return c.out
}
