package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roach88/quadquery/internal/compiler"
)

// readSpec compiles the find-spec document at path and checks its kind.
func readSpec(path string, want compiler.Kind) (*compiler.Document, error) {
	doc, err := compiler.CompileFile(path)
	if err != nil {
		return nil, err
	}
	if doc.Kind != want {
		return nil, &compiler.CompileError{
			Field:   "document",
			Message: fmt.Sprintf("expected a %s document, got %s", want, doc.Kind),
		}
	}
	return doc, nil
}

// readInput resolves a text argument: "-" reads stdin, "@path" reads a
// file and anything else is the text itself.
func readInput(arg string, stdin io.Reader) (string, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", WrapExitError(ExitCommandError, "reading input", err)
		}
		return string(data), nil
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(arg[1:])
		if err != nil {
			return "", WrapExitError(ExitCommandError, "reading input", err)
		}
		return string(data), nil
	default:
		return arg, nil
	}
}
