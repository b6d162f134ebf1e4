// Package assert contains checks for programmer errors. They panic instead of
// returning an error since there is nothing a caller could do to recover.
package assert

import "fmt"

func NotNil(value any, name string) {
	if value == nil {
		panic(fmt.Sprintf("%s: expected value to be not nil", name))
	}
}

func NotEmptyStr(str, name string) {
	if str == "" {
		panic(fmt.Sprintf("%s: expected string to be non-empty", name))
	}
}

func NotNegative[T ~int | ~int64 | ~float64](value T, name string) {
	if value < 0 {
		panic(fmt.Sprintf("%s: expected %v to be >= 0", name, value))
	}
}
