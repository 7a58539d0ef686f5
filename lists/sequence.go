// Package lists implements two interchangeable linked sequences, a singly
// linked chain and a doubly linked chain, behind the Sequence contract.
//
// A sequence is not safe for concurrent use. Callers sharing one instance
// between goroutines must serialise access themselves.
package lists

import (
	"fmt"
	"io"
	"iter"
)

type Kind uint8

const (
	KindSingly Kind = iota
	KindDouble
)

func (k Kind) String() string {
	switch k {
	case KindSingly:
		return "singly"
	case KindDouble:
		return "double"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "singly", "single":
		return KindSingly, nil
	case "double", "doubly":
		return KindDouble, nil
	default:
		return 0, fmt.Errorf("unknown list kind %q", name)
	}
}

// Sequence is the capability set shared by both chain kinds.
//
// Value lookups compare with ==. Remove, Search and Update report
// ErrEmptyList on an empty sequence and ErrValueNotFound when no element
// matches; the returned bool is only true together with a nil error.
// A failed call never mutates the sequence.
type Sequence[T comparable] interface {
	// Kind reports which implementation backs the sequence.
	Kind() Kind

	// Insert adds value as the new last element.
	Insert(value T)
	// Append is an alias for Insert.
	Append(value T)
	// Remove unlinks the first element equal to value.
	Remove(value T) (bool, error)
	// Search reports whether an element equal to value is present.
	Search(value T) (bool, error)
	// Update overwrites the first element equal to oldValue in place.
	Update(oldValue, newValue T) (bool, error)
	// Pop removes and returns the last element.
	Pop() (T, error)
	// Get returns the element at a zero-based position.
	Get(index int) (T, error)
	// Clear drops every element.
	Clear()

	// IsEmpty reports whether Len is zero.
	IsEmpty() bool
	// Len returns the number of elements.
	Len() int

	// All yields (index, value) pairs from head to tail.
	All() iter.Seq2[int, T]
	// Values copies the elements from head to tail.
	Values() []T
	// String renders the sequence in its kind's print format.
	String() string
	// Print writes the sequence to w.
	Print(w io.Writer) error
}

var (
	_ Sequence[int] = (*Singly[int])(nil)
	_ Sequence[int] = (*Double[int])(nil)
)

// New returns an empty sequence of the given kind.
func New[T comparable](kind Kind) (Sequence[T], error) {
	switch kind {
	case KindSingly:
		return NewSingly[T](), nil
	case KindDouble:
		return NewDouble[T](), nil
	default:
		return nil, fmt.Errorf("unknown list kind %v", kind)
	}
}

// FromSlice builds a sequence of the given kind by appending values in order.
func FromSlice[T comparable](kind Kind, values []T) (Sequence[T], error) {
	seq, err := New[T](kind)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		seq.Append(v)
	}
	return seq, nil
}

func collect[T any](seq iter.Seq2[int, T], n int) []T {
	out := make([]T, 0, n)
	for _, v := range seq {
		out = append(out, v)
	}
	return out
}
