package registry

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation is the kind shared by every rejected state change.
var ErrInvalidOperation = errors.New("invalid operation")

var (
	ErrAlreadyMember  = fmt.Errorf("%w: account is already a member", ErrInvalidOperation)
	ErrNotMember      = fmt.Errorf("%w: account is not a member", ErrInvalidOperation)
	ErrInvalidAccount = errors.New("invalid account address")
)
