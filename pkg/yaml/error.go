package yaml

import (
	"fmt"

	"github.com/goccy/go-yaml/token"
)

// Error represents a YAML decode error. It includes the original error and
// the [*token.Token] where the error occurred, so callers can surface the
// source position to whoever submitted the document.
type Error struct {
	Err   error
	Token *token.Token
}

func (e *Error) Error() string {
	if e.Err == nil {
		return ""
	}
	if e.Token == nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("[%d:%d] %v", e.Token.Position.Line, e.Token.Position.Column, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
