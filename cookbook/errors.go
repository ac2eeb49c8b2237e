package cookbook

import (
	"errors"
	"fmt"
)

// NotACookbookError is returned when a directory said to be a cookbook
// has neither a metadata.json nor a metadata.rb.
type NotACookbookError struct {
	Path string
}

func (e *NotACookbookError) Error() string {
	return fmt.Sprintf("%q is not a valid cookbook", e.Path)
}

func IsNotACookbook(err error) bool {
	var e *NotACookbookError
	return errors.As(err, &e)
}
