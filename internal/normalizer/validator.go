package normalizer

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"datascrubber/internal/config"
	"datascrubber/internal/models"
)

// Validation errors.
var (
	ErrUnexpectedColumns = errors.New("unexpected column layout")
	ErrInvalidDate       = errors.New("invalid ISO date")
)

// Validator checks tables against the output schemas.
type Validator struct {
	undisclosed string
}

// NewValidator creates a new validator instance.
func NewValidator(undisclosed string) *Validator {
	return &Validator{undisclosed: undisclosed}
}

// ValidatePrecleaned checks the precleaned column order and that Read Date is
// an ISO date or undisclosed.
func (v *Validator) ValidatePrecleaned(t *models.Table) error {
	if !slices.Equal(t.Columns, models.PrecleanedColumns) {
		return fmt.Errorf("%w: got %q", ErrUnexpectedColumns, t.Columns)
	}

	return v.checkDates(t, models.ColReadDate, true)
}

// ValidateCleaned checks the dashboard column order and that both dates are ISO.
func (v *Validator) ValidateCleaned(t *models.Table) error {
	if !slices.Equal(t.Columns, models.CleanedColumns) {
		return fmt.Errorf("%w: got %q", ErrUnexpectedColumns, t.Columns)
	}

	if err := v.checkDates(t, models.ColReadDate, true); err != nil {
		return err
	}

	return v.checkDates(t, models.ColPostDate, false)
}

func (v *Validator) checkDates(t *models.Table, column string, allowUndisclosed bool) error {
	for i, rec := range t.Records {
		d := rec[column]
		if allowUndisclosed && d == v.undisclosed {
			continue
		}

		if _, err := time.Parse(config.DefaultDateLayoutOut, d); err != nil {
			return fmt.Errorf("%w: %s %q at row %d", ErrInvalidDate, column, d, i)
		}
	}

	return nil
}
