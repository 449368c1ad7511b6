// Package batch splits large id sets into bounded chunks for stores that cap
// the number of parameters a single query may carry.
package batch

import "context"

// Chunks splits items into consecutive slices of at most size elements.
// A non-positive size yields a single chunk. The chunks share items' backing array.
func Chunks[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || len(items) <= size {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// Collect calls fn once per chunk, in order, and concatenates the results.
// It stops at the first error or when ctx is done.
func Collect[T, R any](ctx context.Context, items []T, size int, fn func(context.Context, []T) ([]R, error)) ([]R, error) {
	var out []R
	for _, chunk := range Chunks(items, size) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := fn(ctx, chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, results...)
	}
	return out, nil
}
