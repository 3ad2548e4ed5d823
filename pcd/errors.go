package pcd

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidParameter is returned when a processing parameter is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrDegenerateInput is returned when the input has too few points to fit a model.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrNoPlaneFound is returned when plane segmentation yields no inliers.
	ErrNoPlaneFound = errors.New("no plane found")
)
