/*
Package slice compliments the standard [slices] package by providing functional
programming utilities (Map, Filter, Chunk) leveraging generics.
*/
package slice

// Map maps a slice of type T to a slice of type U using the provided transformation function.
func Map[T any, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}

	return result
}

// Filter filters a slice, returning only elements where the predicate function evaluates to true.
func Filter[T any](input []T, predicate func(T) bool) []T {
	if input == nil {
		return nil
	}

	// Not pre-allocating to full length to avoid excessive memory on heavy filters
	var result []T
	for _, v := range input {
		if predicate(v) {
			result = append(result, v)
		}
	}

	return result
}

// Reduce reduces a slice into a single accumulated result using the reducer function.
func Reduce[T any, U any](input []T, initial U, reducer func(accumulator U, current T) U) U {
	result := initial
	for _, v := range input {
		result = reducer(result, v)
	}
	return result
}

// Chunk splits input into consecutive slices of at most size elements.
//
// The final chunk may be shorter than size. Chunk panics if size <= 0.
func Chunk[T any](input []T, size int) [][]T {
	if size <= 0 {
		panic("slice: Chunk size must be positive")
	}
	if len(input) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(input)+size-1)/size)
	for start := 0; start < len(input); start += size {
		end := start + size
		if end > len(input) {
			end = len(input)
		}
		chunks = append(chunks, input[start:end])
	}
	return chunks
}
