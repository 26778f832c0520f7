// Package batch splits unbounded sequences into fixed-size groups so bulk
// loads can bound statement and transaction size without materializing the
// whole input.
package batch

import "iter"

// Chunk yields consecutive groups of at most size items from seq. The final
// group may be shorter; an empty seq yields nothing. A size below 1 is
// treated as 1.
//
// Each yielded slice is freshly allocated and may be retained by the caller.
func Chunk[T any](seq iter.Seq[T], size int) iter.Seq[[]T] {
	if size < 1 {
		size = 1
	}
	return func(yield func([]T) bool) {
		group := make([]T, 0, size)
		for item := range seq {
			group = append(group, item)
			if len(group) < size {
				continue
			}
			if !yield(group) {
				return
			}
			group = make([]T, 0, size)
		}
		if len(group) != 0 {
			yield(group)
		}
	}
}

// FromSlice adapts a slice to a sequence
func FromSlice[T any](items []T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}

// FromChan yields items received from ch until it is closed. Stopping early
// leaves remaining items in ch; the producer must observe cancellation on
// its own.
func FromChan[T any](ch <-chan T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for item := range ch {
			if !yield(item) {
				return
			}
		}
	}
}
