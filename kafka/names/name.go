// Package names contains the ValidateTopicName function.
//
// Outside kafka/, don't import this package directly. Instead, import kafka/
// which reexports ValidateTopicName.
package names

import (
	"errors"
	"fmt"
	"regexp"
)

// maxTopicNameLength is the broker-side limit
const maxTopicNameLength = 249

var reValidTopicName = regexp.MustCompile(`^[-_.a-zA-Z0-9]+$`)

// ValidateTopicName returns an error if the given topic name is invalid.
//
// Follows the rules Kafka and Redpanda brokers apply when auto-creating
// topics; the name also becomes a file name in kafka/local.
func ValidateTopicName(name string) error {
	switch {
	case name == "":
		return errors.New("topic name cannot be empty")
	case name == "." || name == "..":
		return errors.New(`topic name cannot be "." or ".."`)
	case len(name) > maxTopicNameLength:
		return fmt.Errorf("topic name cannot be longer than %d characters", maxTopicNameLength)
	case !reValidTopicName.MatchString(name):
		return fmt.Errorf("invalid topic name: %s (must match %s)", name, reValidTopicName)
	}
	return nil
}
