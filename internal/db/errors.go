package db

import (
	"errors"
	"fmt"
)

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	// ErrTxAborted means EXEC returned nil: the MULTI block was discarded.
	ErrTxAborted = errors.New("db: transaction aborted")
)

// Op names the Redis command an Error came from.
type Op string

const (
	OpCreateIndex Op = "FT.CREATE"
	OpDropIndex   Op = "FT.DROPINDEX"
	OpIndexInfo   Op = "FT.INFO"
	OpSearch      Op = "FT.SEARCH"
	OpHGetAll     Op = "HGETALL"
	OpHMGet       Op = "HMGET"
	OpHSet        Op = "HSET"
	OpMulti       Op = "MULTI"
	OpScan        Op = "SCAN"
)

// Error wraps a driver failure with the command and, when known, the key or index it targeted.
type Error struct {
	Op  Op
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
