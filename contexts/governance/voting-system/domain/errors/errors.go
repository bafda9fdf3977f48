package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized       = errors.New("caller is not authorized")
	ErrNotRegisteredVoter = fmt.Errorf("%w: not a registered voter", ErrUnauthorized)
	ErrProposalNotFound   = errors.New("invalid proposal id")
	ErrAlreadyRegistered  = errors.New("voter already registered")
	ErrAlreadyFinalized   = errors.New("proposal is not active")
	ErrDuplicateVote      = errors.New("already voted on this proposal")
	ErrVotingClosed       = errors.New("voting period has ended")
	ErrTooEarly           = errors.New("voting period has not ended yet")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConflict           = errors.New("voting state conflict")
)
