package lists

import (
	"bytes"
	"testing"
)

func TestSinglyString(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   string
	}{
		{"empty", nil, "None"},
		{"one", []int{1}, "1 -> None"},
		{"many", []int{1, 2, 3}, "1 -> 2 -> 3 -> None"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := SinglyFrom(tt.values)
			if got := l.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}

			var buf bytes.Buffer
			if err := l.Print(&buf); err != nil {
				t.Fatal(err)
			}
			if got := buf.String(); got != tt.want+"\n" {
				t.Errorf("Print() wrote %q", got)
			}
		})
	}
}

func TestSinglyRemoveUnlinksNode(t *testing.T) {
	l := SinglyFrom([]int{1, 2, 3})
	second := l.head.next

	if ok, err := l.Remove(2); !ok || err != nil {
		t.Fatalf("Remove(2) = %v, %v", ok, err)
	}
	if second.next != nil {
		t.Error("removed node still points into the chain")
	}
	if l.head.next.value != 3 {
		t.Errorf("head.next = %v, want 3", l.head.next.value)
	}
}

func TestSinglyPopKeepsHead(t *testing.T) {
	l := SinglyFrom([]string{"a", "b"})
	head := l.head

	if v, err := l.Pop(); err != nil || v != "b" {
		t.Fatalf("Pop() = %q, %v", v, err)
	}
	if l.head != head || l.head.next != nil {
		t.Error("Pop() should only detach the last node")
	}

	if v, err := l.Pop(); err != nil || v != "a" {
		t.Fatalf("Pop() = %q, %v", v, err)
	}
	if l.head != nil {
		t.Error("head should be absent after popping the only node")
	}
}

func TestSinglyClearUnlinks(t *testing.T) {
	l := SinglyFrom([]int{1, 2, 3})
	first := l.head
	l.Clear()
	if first.next != nil {
		t.Error("Clear() left nodes linked")
	}
	if l.head != nil || l.Len() != 0 {
		t.Errorf("Clear() left head=%v len=%d", l.head, l.Len())
	}
}
