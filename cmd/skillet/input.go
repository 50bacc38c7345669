package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// FileNotFoundError reports an input file that does not exist.
type FileNotFoundError struct {
	Path   string
	Source string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("input file not found: %s (from %s)", e.Path, e.Source)
}

// Hint tells the operator where the path came from.
func (e *FileNotFoundError) Hint() string {
	return fmt.Sprintf("Check the path passed via %s", e.Source)
}

// ErrEmptyInput is returned when no input was provided from any source.
var ErrEmptyInput = errors.New("no input provided: pass it as an argument, with --input-file, or on stdin")

// inputReader resolves skill input from its three sources.
type inputReader struct {
	stdin    io.Reader
	terminal func() bool
}

func newInputReader() *inputReader {
	return &inputReader{
		stdin:    os.Stdin,
		terminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

// Read returns the first non-empty source in order: positional argument,
// input file, piped stdin. Stdin is never touched when an earlier source
// is present or when it is a terminal.
func (r *inputReader) Read(positional, inputFile string) (string, error) {
	if positional != "" {
		return positional, nil
	}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if os.IsNotExist(err) {
			return "", &FileNotFoundError{Path: inputFile, Source: "--input-file"}
		}
		if err != nil {
			return "", errors.Wrapf(err, "failed to read input file %s", inputFile)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", errors.Errorf("input file %s is empty", inputFile)
		}
		return string(data), nil
	}

	if r.stdin != nil && !r.terminal() {
		data, err := io.ReadAll(r.stdin)
		if err != nil {
			return "", errors.Wrap(err, "failed to read stdin")
		}
		if strings.TrimSpace(string(data)) != "" {
			return string(data), nil
		}
	}
	return "", ErrEmptyInput
}

// writeOutput writes text to path, or to w when path is empty.
func writeOutput(w io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(w, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write output to %s", path)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
