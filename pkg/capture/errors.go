package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrDevice matches any DeviceError.
	ErrDevice = errors.New("capture: microphone unavailable")

	// ErrTooShort is returned when a recording ends before the minimum
	// duration. It is a notice, not a failure: nothing is sent downstream.
	ErrTooShort = errors.New("capture: recording too short")

	// ErrBusy is returned by Press while a session is already active.
	ErrBusy = errors.New("capture: already capturing")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("capture: controller closed")

	// ErrUnknownSignal is returned by ParseSignal.
	ErrUnknownSignal = errors.New("capture: unknown signal")
)

// DeviceError reports a microphone that could not be opened or read.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("capture: device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDevice) true for every DeviceError.
func (e *DeviceError) Is(target error) bool { return target == ErrDevice }
