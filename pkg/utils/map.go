package utils

// Generates a sequence constructed by applying a function to all elements of a given input sequence
func Map[T any, U any](input []T, mapFunction func(T) U) []U {
	output := make([]U, len(input))

	for i := range input {
		output[i] = mapFunction(input[i])
	}

	return output
}

// Returns an array with all the keys of a map
func Keys[Key comparable, Value any](input map[Key]Value) []Key {
	keys := make([]Key, 0, len(input))

	for key := range input {
		keys = append(keys, key)
	}

	return keys
}

// Returns an array with all the values of a map
func Values[Key comparable, Value any](input map[Key]Value) []Value {
	values := make([]Value, 0, len(input))

	for _, value := range input {
		values = append(values, value)
	}

	return values
}

// Keeps the elements of a sequence for which the predicate holds
func Filter[T any](input []T, keep func(T) bool) []T {
	output := make([]T, 0, len(input))

	for _, value := range input {
		if keep(value) {
			output = append(output, value)
		}
	}

	return output
}
