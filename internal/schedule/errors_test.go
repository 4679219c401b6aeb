package schedule

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInconsistentScheduleError(t *testing.T) {
	err := &InconsistentScheduleError{TripID: "t7", Minute: 487}
	assert.Contains(t, err.Error(), "t7")
	assert.Contains(t, err.Error(), "487")

	wrapped := fmt.Errorf("tick: %w", err)
	var ise *InconsistentScheduleError
	assert.True(t, errors.As(wrapped, &ise))
	assert.Equal(t, "t7", ise.TripID)
}
