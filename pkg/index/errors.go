package index

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every lookup miss
var ErrNotFound = errors.New("not found")

// Kind names what a lookup was searching for
type Kind string

const (
	KindFile      Kind = "file"
	KindSymbol    Kind = "symbol"
	KindType      Kind = "type"
	KindExtension Kind = "extension"
)

// NotFoundError describes a lookup that had no entry
type NotFoundError struct {
	Kind Kind
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown %s: %s", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func notFound(kind Kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}
