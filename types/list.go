package types

// Element is an entry of the keyed list backing OrderedMap.
type Element[V any] struct {
	Key   string
	Value V

	next *Element[V]
	prev *Element[V]
}

func (e *Element[V]) Next() *Element[V] {
	return e.next
}

func (e *Element[V]) Prev() *Element[V] {
	return e.prev
}

// List keeps elements in insertion order. root.next is the first element and
// root.prev the last one; the chain itself is not circular.
type List[V any] struct {
	root Element[V]
	len  int
}

func (l *List[V]) IsEmpty() bool {
	return l.root.next == nil
}

func (l *List[V]) Len() int {
	return l.len
}

func (l *List[V]) First() *Element[V] {
	return l.root.next
}

func (l *List[V]) Last() *Element[V] {
	return l.root.prev
}

func (l *List[V]) Push(key string, value V) *Element[V] {
	e := &Element[V]{Key: key, Value: value}
	l.len++

	if l.root.prev == nil {
		l.root.next = e
		l.root.prev = e

		return e
	}

	e.prev = l.root.prev
	l.root.prev.next = e
	l.root.prev = e

	return e
}

func (l *List[V]) Remove(e *Element[V]) {
	if e.prev == nil {
		l.root.next = e.next
	} else {
		e.prev.next = e.next
	}

	if e.next == nil {
		l.root.prev = e.prev
	} else {
		e.next.prev = e.prev
	}

	e.next = nil
	e.prev = nil
	l.len--
}
