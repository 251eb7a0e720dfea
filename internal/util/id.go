package util

import "fmt"

// GenerateTaskID returns a task ID in the format t01, t02, ..., t99, t100, etc.
func GenerateTaskID(index int) string {
	return fmt.Sprintf("t%02d", index+1)
}

// GenerateSubtaskID returns a child ID under the given parent, in the format
// t01.1, t01.2, etc. Nested children extend the chain: t01.1.1.
func GenerateSubtaskID(parentID string, index int) string {
	return fmt.Sprintf("%s.%d", parentID, index+1)
}
