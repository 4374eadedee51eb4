package icssync

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is returned when a terminal call lacks its serial number or an
// administrative call carries no usable command. Nothing is mutated.
var ErrValidation = errors.New("validation error")

func validateSerial(serial string) error {
	if strings.TrimSpace(serial) == "" {
		return fmt.Errorf("%w: SN is required", ErrValidation)
	}
	return nil
}
