package utils // import "github.com/quarterdeck-gg/console/utils"

// PrintSlice is a helper function to print a slice as a string of comma
// separated values. The string is truncated to the first n elements in the
// slice, to improve readability.
func PrintSlice[T any](slice []T, n int) string {
	if len(slice) < n {
		n = len(slice)
	}

	var message string
	for i, v := range slice[:n] {
		if i+1 == n {
			message += Sprintf("%v", v)
		} else {
			message += Sprintf("%v, ", v)
		}
	}
	return message
}
