package tgui

import "fmt"

// Page is one window of a paginated slice. Index is 0-based.
type Page[T any] struct {
	Items []T
	Index int
	Count int
	Total int
}

func (p Page[T]) HasPrev() bool { return p.Index > 0 }
func (p Page[T]) HasNext() bool { return p.Index+1 < p.Count }

// Paginate returns page index of items, clamped into range. An empty slice
// still yields one empty page.
func Paginate[T any](items []T, index, size int) Page[T] {
	if size <= 0 {
		size = 10
	}
	count := (len(items) + size - 1) / size
	if count == 0 {
		count = 1
	}
	index = min(max(index, 0), count-1)
	start := min(index*size, len(items))
	end := min(start+size, len(items))
	return Page[T]{Items: items[start:end], Index: index, Count: count, Total: len(items)}
}

// Label renders "Page 2/3".
func (p Page[T]) Label() string {
	return fmt.Sprintf("Page %d/%d", p.Index+1, p.Count)
}
