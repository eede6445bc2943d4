package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrUsage marks errors caused by bad flags, config files or inputs. main
// exits with status 2 for them.
var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// flagUsageError turns cobra flag errors (like unknown flags) into usage
// errors that also show the command's help text.
func flagUsageError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}
