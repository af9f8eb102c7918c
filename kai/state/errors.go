package state

import (
	"errors"
	"fmt"
)

type (
	ErrInvalidTx struct {
		Index int
		Cause error
	}
	ErrUnknownTxKind struct {
		Kind TxKind
	}
)

func (e ErrInvalidTx) Error() string {
	return fmt.Sprintf("invalid tx #%d: %v", e.Index, e.Cause)
}

func (e ErrUnknownTxKind) Error() string {
	return fmt.Sprintf("unknown tx kind %d", e.Kind)
}

var (
	ErrNoBlock = errors.New("no block in progress")
)
