package authz

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks a model or policy that cannot be loaded.
var ErrInvalidConfig = errors.New("authz: invalid configuration")

func configError(msg string, args ...any) error {
	return fmt.Errorf("%w: "+msg, append([]any{ErrInvalidConfig}, args...)...)
}
