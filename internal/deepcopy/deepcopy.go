// Package deepcopy copies values so that slices, maps and nested pointers are not shared
// with the original.
package deepcopy

import (
	"github.com/pkg/errors"
	"github.com/tiendc/go-deepcopy"
)

// Copy returns a deep copy of *src. A nil src yields (nil, nil).
func Copy[T any](src *T) (*T, error) {
	if src == nil {
		return nil, nil
	}

	var dst T
	if err := deepcopy.Copy(&dst, *src); err != nil {
		return nil, errors.Wrapf(err, "failed to deep copy type %T", src)
	}
	return &dst, nil
}

// MustCopy is like Copy but panics on failure.
func MustCopy[T any](src *T) *T {
	dst, err := Copy(src)
	if err != nil {
		panic(err)
	}
	return dst
}
