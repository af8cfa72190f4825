package models

import (
	"fmt"
	"strconv"
	"strings"

	"fleet-asset-report/internal/errors"
)

// Window is an inclusive [Start, End] range of epoch seconds
type Window struct {
	Start int64 `json:"start_time"`
	End   int64 `json:"end_time"`
}

func NewWindow(start, end int64) Window {
	return Window{Start: start, End: end}
}

// ParseWindow validates raw request parameters. Both bounds must be present
// and integer-parseable; an inverted window is valid and simply matches nothing.
func ParseWindow(start, end string) (Window, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return Window{}, errors.New(errors.ErrInvalidWindow).
			WithMessage("provide the required parameters start_time and end_time")
	}

	s, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return Window{}, errors.Wrap(errors.ErrInvalidWindow, err).
			WithMessage("invalid epoch format for start_time and end_time")
	}
	e, err := strconv.ParseInt(end, 10, 64)
	if err != nil {
		return Window{}, errors.Wrap(errors.ErrInvalidWindow, err).
			WithMessage("invalid epoch format for start_time and end_time")
	}

	return NewWindow(s, e), nil
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts int64) bool {
	return w.Start <= ts && ts <= w.End
}

// Empty is true when no timestamp can match.
func (w Window) Empty() bool {
	return w.Start > w.End
}

func (w Window) String() string {
	return fmt.Sprintf("[%d, %d]", w.Start, w.End)
}
