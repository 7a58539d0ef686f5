package lists

import (
	"fmt"
	"io"
	"iter"
	"strings"
)

// sNode is referenced by exactly one predecessor, or by the list head.
type sNode[T comparable] struct {
	value T
	next  *sNode[T]
}

// Singly is a forward-only chain. It keeps no tail pointer, so Append and
// Pop walk the chain.
type Singly[T comparable] struct {
	head   *sNode[T]
	length int
}

func NewSingly[T comparable]() *Singly[T] {
	return &Singly[T]{}
}

// SinglyFrom builds a Singly list holding values in order.
func SinglyFrom[T comparable](values []T) *Singly[T] {
	l := NewSingly[T]()
	for _, v := range values {
		l.Append(v)
	}
	return l
}

func (l *Singly[T]) Kind() Kind {
	return KindSingly
}

func (l *Singly[T]) Insert(value T) {
	node := &sNode[T]{value: value}
	l.length++
	if l.head == nil {
		l.head = node
		return
	}

	last := l.head
	for last.next != nil {
		last = last.next
	}
	last.next = node
}

func (l *Singly[T]) Append(value T) {
	l.Insert(value)
}

func (l *Singly[T]) Remove(value T) (bool, error) {
	if l.head == nil {
		return false, ErrEmptyList
	}

	// slot is the pointer that owns the current node: l.head or prev.next.
	for slot := &l.head; *slot != nil; slot = &(*slot).next {
		if (*slot).value != value {
			continue
		}
		removed := *slot
		*slot = removed.next
		removed.next = nil
		l.length--
		return true, nil
	}
	return false, valueNotFound(value)
}

func (l *Singly[T]) Search(value T) (bool, error) {
	if l.head == nil {
		return false, ErrEmptyList
	}
	if l.find(value) == nil {
		return false, valueNotFound(value)
	}
	return true, nil
}

func (l *Singly[T]) Update(oldValue, newValue T) (bool, error) {
	if l.head == nil {
		return false, ErrEmptyList
	}
	node := l.find(oldValue)
	if node == nil {
		return false, valueNotFound(oldValue)
	}
	node.value = newValue
	return true, nil
}

func (l *Singly[T]) Pop() (T, error) {
	var zero T
	if l.head == nil {
		return zero, ErrEmptyList
	}

	l.length--
	if l.head.next == nil {
		last := l.head
		l.head = nil
		return last.value, nil
	}

	penultimate := l.head
	for penultimate.next.next != nil {
		penultimate = penultimate.next
	}
	last := penultimate.next
	penultimate.next = nil
	return last.value, nil
}

func (l *Singly[T]) Get(index int) (T, error) {
	var zero T
	if l.head == nil {
		return zero, ErrEmptyList
	}
	if index < 0 || index >= l.length {
		return zero, &IndexError{Index: index, Len: l.length}
	}

	node := l.head
	for i := 0; i < index; i++ {
		node = node.next
	}
	return node.value, nil
}

// Clear unlinks every node so the chain does not keep values reachable
// through a stale pointer.
func (l *Singly[T]) Clear() {
	for l.head != nil {
		node := l.head
		l.head = node.next
		node.next = nil
	}
	l.length = 0
}

func (l *Singly[T]) IsEmpty() bool {
	return l.length == 0
}

func (l *Singly[T]) Len() int {
	return l.length
}

func (l *Singly[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		i := 0
		for node := l.head; node != nil; node = node.next {
			if !yield(i, node.value) {
				return
			}
			i++
		}
	}
}

func (l *Singly[T]) Values() []T {
	return collect(l.All(), l.length)
}

// String renders the chain as "v1 -> v2 -> ... -> None".
func (l *Singly[T]) String() string {
	var b strings.Builder
	for _, v := range l.All() {
		fmt.Fprintf(&b, "%v -> ", v)
	}
	b.WriteString("None")
	return b.String()
}

func (l *Singly[T]) Print(w io.Writer) error {
	_, err := fmt.Fprintln(w, l.String())
	return err
}

func (l *Singly[T]) find(value T) *sNode[T] {
	for node := l.head; node != nil; node = node.next {
		if node.value == value {
			return node
		}
	}
	return nil
}
