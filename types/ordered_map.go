package types

// OrderedMap indexes List elements by key and remembers insertion order.
type OrderedMap[V any] struct {
	dict map[string]*Element[V]
	list List[V]
}

func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{
		dict: make(map[string]*Element[V]),
	}
}

// Set stores value under key. It returns false when the key already existed
// and its value was replaced in place.
func (m *OrderedMap[V]) Set(key string, value V) bool {
	if element, alreadyExist := m.dict[key]; alreadyExist {
		element.Value = value
		return false
	}

	element := m.list.Push(key, value)
	m.dict[key] = element
	return true
}

func (m *OrderedMap[V]) Get(key string) (value V, ok bool) {
	v, ok := m.dict[key]
	if ok {
		value = v.Value
	}

	return
}

func (m *OrderedMap[V]) Delete(key string) (didDelete bool) {
	element, ok := m.dict[key]
	if ok {
		m.list.Remove(element)
		delete(m.dict, key)
	}

	return ok
}

func (m *OrderedMap[V]) Len() int {
	return m.list.Len()
}

func (m *OrderedMap[V]) Keys() (keys []string) {
	keys = make([]string, 0, len(m.dict))
	for el := m.list.First(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}

	return
}
