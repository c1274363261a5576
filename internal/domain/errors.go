package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New(ReasonInsufficientBalance)
	ErrIntegrity         = errors.New("integrity fault")
)

func Invalidf(format string, args ...any) error  { return wrapf(ErrInvalidArgument, format, args...) }
func NotFoundf(format string, args ...any) error { return wrapf(ErrNotFound, format, args...) }
func Conflictf(format string, args ...any) error { return wrapf(ErrConflict, format, args...) }
func Integrityf(format string, args ...any) error {
	return wrapf(ErrIntegrity, format, args...)
}

func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool  { return errors.Is(err, ErrConflict) }
func IsInvalid(err error) bool   { return errors.Is(err, ErrInvalidArgument) }
func IsIntegrity(err error) bool { return errors.Is(err, ErrIntegrity) }
