// Package options implements the generic functional option pattern shared by
// the corrfit configuration types.
package options

import (
	"errors"
	"fmt"

	"github.com/arloliu/corrfit/errs"
)

// Option configures a target of type T.
type Option[T any] interface {
	apply(T) error
}

// Func is a functional option backed by a plain function.
type Func[T any] struct {
	applyFunc func(T) error
}

// apply implements the Option interface.
func (f *Func[T]) apply(target T) error {
	return f.applyFunc(target)
}

// New creates an option from a function that may reject its input.
func New[T any](fn func(T) error) *Func[T] {
	return &Func[T]{applyFunc: fn}
}

// NoError creates an option from a function that cannot fail.
func NoError[T any](fn func(T)) *Func[T] {
	return &Func[T]{
		applyFunc: func(target T) error {
			fn(target)
			return nil
		},
	}
}

// Apply applies options in order and stops at the first failure.
//
// Errors not already classified as errs.ErrInvalidOption are wrapped with it,
// so callers can detect configuration mistakes with errors.Is.
func Apply[T any](target T, opts ...Option[T]) error {
	for i, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(target); err != nil {
			return wrap(i, err)
		}
	}

	return nil
}

func wrap(i int, err error) error {
	if errors.Is(err, errs.ErrInvalidOption) {
		return err
	}

	return fmt.Errorf("%w: option %d: %w", errs.ErrInvalidOption, i, err)
}
