package risk

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInsufficientData means the series is too short for the requested computation.
	ErrInsufficientData = errors.New("risk: insufficient data")
	// ErrInvalidValue means an input value is non-finite, or non-positive where positivity is required.
	ErrInvalidValue = errors.New("risk: invalid value")
	// ErrInvalidParameter means a scalar parameter is out of its domain.
	ErrInvalidParameter = errors.New("risk: invalid parameter")
)

func checkConfidence(c float64) error {
	if math.IsNaN(c) || c <= 0 || c >= 1 {
		return fmt.Errorf("%w: confidence level must be in (0,1), got %v", ErrInvalidParameter, c)
	}
	return nil
}

func checkAnnualisation(k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: annualisation factor must be positive, got %d", ErrInvalidParameter, k)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
