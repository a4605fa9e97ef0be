package rendezvous

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCfg = errors.New("rendezvous: invalid options")

	ErrConfig     = errors.New("hosts: invalid peer table")
	ErrUnknownID  = errors.New("hosts: unknown process ID")
	ErrResolution = errors.New("resolve: could not obtain an IPv4 address")
	ErrIO         = errors.New("rendezvous: i/o failure")

	ErrProtocolViolation = errors.New("rendezvous: protocol violation")

	ErrAlreadyFinished = errors.New("rendezvous: finished signal already sent")
	ErrInvalidID       = errors.New("rendezvous: the 0 ID is reserved for infrastructure endpoints")
)

// LineError reports a peer table record which could not be accepted.
type LineError struct {
	Path string
	Line int
	msg  string
	err  error
}

func (lerr *LineError) Error() string {
	if lerr.err != nil {
		return fmt.Sprintf("%s: `%s` line %d: %s: %s", ErrConfig, lerr.Path, lerr.Line, lerr.msg, lerr.err)
	}
	return fmt.Sprintf("%s: `%s` line %d: %s", ErrConfig, lerr.Path, lerr.Line, lerr.msg)
}

func (lerr *LineError) Unwrap() []error {
	if lerr.err != nil {
		return []error{ErrConfig, lerr.err}
	}
	return []error{ErrConfig}
}
