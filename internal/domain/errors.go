package domain

import "errors"

var (
	ErrNotFound         = errors.New("hotel not found")
	ErrAlreadyBooked    = errors.New("hotel already booked")
	ErrPersistence      = errors.New("persist hotel failed")
	ErrAddOnUnsupported = errors.New("add-on not supported")
	ErrTooManyAttempts  = errors.New("too many authentication attempts")
	ErrInvalidRequest   = errors.New("invalid booking request")
	ErrDuplicateHotel   = errors.New("duplicate hotel id")
)
