package lists

import (
	"fmt"
	"io"
	"iter"
	"strings"
)

// nilIndex marks an absent link. Slot 0 of the arena is never handed out, so
// the zero Double is an empty list.
const nilIndex = 0

// extNode lives in the Double arena. next and prev are arena indices; prev is
// only used for navigation and patching, the arena owns every slot.
type extNode[T comparable] struct {
	value T
	next  int
	prev  int
}

// Double is a doubly linked chain stored in an arena of nodes. Released
// slots go on a free-list and are reused by later appends. The zero value is
// an empty list ready to use.
type Double[T comparable] struct {
	nodes  []extNode[T]
	free   []int
	head   int
	tail   int
	length int
}

func NewDouble[T comparable]() *Double[T] {
	return &Double[T]{}
}

// DoubleFrom builds a Double list holding values in order.
func DoubleFrom[T comparable](values []T) *Double[T] {
	l := NewDouble[T]()
	for _, v := range values {
		l.Append(v)
	}
	return l
}

func (l *Double[T]) Kind() Kind {
	return KindDouble
}

func (l *Double[T]) Insert(value T) {
	i := l.alloc(value)
	l.length++
	if l.tail == nilIndex {
		l.head, l.tail = i, i
		return
	}

	l.nodes[i].prev = l.tail
	l.nodes[l.tail].next = i
	l.tail = i
}

func (l *Double[T]) Append(value T) {
	l.Insert(value)
}

func (l *Double[T]) Remove(value T) (bool, error) {
	if l.head == nilIndex {
		return false, ErrEmptyList
	}
	i := l.find(value)
	if i == nilIndex {
		return false, valueNotFound(value)
	}
	l.unlink(i)
	return true, nil
}

func (l *Double[T]) Search(value T) (bool, error) {
	if l.head == nilIndex {
		return false, ErrEmptyList
	}
	if l.find(value) == nilIndex {
		return false, valueNotFound(value)
	}
	return true, nil
}

func (l *Double[T]) Update(oldValue, newValue T) (bool, error) {
	if l.head == nilIndex {
		return false, ErrEmptyList
	}
	i := l.find(oldValue)
	if i == nilIndex {
		return false, valueNotFound(oldValue)
	}
	l.nodes[i].value = newValue
	return true, nil
}

func (l *Double[T]) Pop() (T, error) {
	var zero T
	if l.tail == nilIndex {
		return zero, ErrEmptyList
	}
	value := l.nodes[l.tail].value
	l.unlink(l.tail)
	return value, nil
}

// Get walks from whichever end is closer to index.
func (l *Double[T]) Get(index int) (T, error) {
	var zero T
	if l.head == nilIndex {
		return zero, ErrEmptyList
	}
	if index < 0 || index >= l.length {
		return zero, &IndexError{Index: index, Len: l.length}
	}

	if index <= l.length/2 {
		i := l.head
		for n := 0; n < index; n++ {
			i = l.nodes[i].next
		}
		return l.nodes[i].value, nil
	}

	i := l.tail
	for n := l.length - 1; n > index; n-- {
		i = l.nodes[i].prev
	}
	return l.nodes[i].value, nil
}

func (l *Double[T]) Clear() {
	*l = Double[T]{}
}

func (l *Double[T]) IsEmpty() bool {
	return l.length == 0
}

func (l *Double[T]) Len() int {
	return l.length
}

func (l *Double[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		n := 0
		for i := l.head; i != nilIndex; i = l.nodes[i].next {
			if !yield(n, l.nodes[i].value) {
				return
			}
			n++
		}
	}
}

// Backward yields (index, value) pairs from tail to head following the
// back-references.
func (l *Double[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		n := l.length - 1
		for i := l.tail; i != nilIndex; i = l.nodes[i].prev {
			if !yield(n, l.nodes[i].value) {
				return
			}
			n--
		}
	}
}

func (l *Double[T]) Values() []T {
	return collect(l.All(), l.length)
}

// String renders an index-ordered dump such as "[0: a, 1: b]".
func (l *Double[T]) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for n, v := range l.All() {
		if n > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d: %v", n, v)
	}
	b.WriteByte(']')
	return b.String()
}

// Print writes one "index: value" line per element.
func (l *Double[T]) Print(w io.Writer) error {
	for n, v := range l.All() {
		if _, err := fmt.Fprintf(w, "%d: %v\n", n, v); err != nil {
			return err
		}
	}
	return nil
}

func (l *Double[T]) find(value T) int {
	for i := l.head; i != nilIndex; i = l.nodes[i].next {
		if l.nodes[i].value == value {
			return i
		}
	}
	return nilIndex
}

func (l *Double[T]) alloc(value T) int {
	node := extNode[T]{value: value}
	if n := len(l.free); n > 0 {
		i := l.free[n-1]
		l.free = l.free[:n-1]
		l.nodes[i] = node
		return i
	}
	if len(l.nodes) == 0 {
		l.nodes = append(l.nodes, extNode[T]{})
	}
	l.nodes = append(l.nodes, node)
	return len(l.nodes) - 1
}

// unlink splices node i out of the chain and releases its slot. The
// predecessor's next and the successor's prev are patched before the slot
// is cleared, and length drops by exactly one.
func (l *Double[T]) unlink(i int) {
	node := l.nodes[i]

	if node.prev == nilIndex {
		l.head = node.next
	} else {
		l.nodes[node.prev].next = node.next
	}

	if node.next == nilIndex {
		l.tail = node.prev
	} else {
		l.nodes[node.next].prev = node.prev
	}

	l.nodes[i] = extNode[T]{}
	l.free = append(l.free, i)
	l.length--
}
