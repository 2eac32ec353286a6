package pagination

import (
	"context"
	"errors"
	"iter"
)

// ErrEmptySequence is returned by First when the sequence yields no items.
var ErrEmptySequence = errors.New("sequence is empty")

// All adapts the paginator to a range-over-func sequence. Errors are
// yielded in-band; after a non-terminal error the underlying page is
// retried on the next loop iteration, so consumers that keep ranging
// past errors must be prepared to see the same failure repeatedly.
func (p *Paginator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			item, ok, err := p.Next(ctx)
			if err != nil {
				var zero T
				if !yield(zero, err) {
					return
				}
				continue
			}
			if !ok {
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Collect gathers all items from a sequence into a slice. It stops on
// the first error and returns the items collected so far along with it.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var result []T
	for item, err := range seq {
		if err != nil {
			return result, err
		}
		result = append(result, item)
	}
	return result, nil
}

// CollectN gathers up to n items from a sequence. It stops on the first
// error and returns the items collected so far along with it.
func CollectN[T any](seq iter.Seq2[T, error], n int) ([]T, error) {
	result := make([]T, 0, n)
	for item, err := range seq {
		if err != nil {
			return result, err
		}
		result = append(result, item)
		if len(result) >= n {
			break
		}
	}
	return result, nil
}

// First returns the first item from a sequence, or an error if the
// sequence is empty or fails immediately.
func First[T any](seq iter.Seq2[T, error]) (T, error) {
	for item, err := range seq {
		return item, err
	}
	var zero T
	return zero, ErrEmptySequence
}

// Take returns a sequence that yields at most n items from seq.
func Take[T any](seq iter.Seq2[T, error], n int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		count := 0
		for item, err := range seq {
			if !yield(item, err) || err != nil {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}
