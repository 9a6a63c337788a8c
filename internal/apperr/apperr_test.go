package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationWrapsKind(t *testing.T) {
	err := Validation("missing %s", "title")

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: missing title", err.Error())
	assert.True(t, IsBusiness(err))
}

func TestDependencyIsNotBusiness(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency("query listings", cause)

	assert.ErrorIs(t, err, ErrDependency)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsBusiness(err))
}

func TestWrappedKindsAreBusiness(t *testing.T) {
	for _, kind := range []error{ErrForbidden, ErrNotFound, ErrInvalidTransition, ErrListingUnavailable, ErrSelfPurchaseForbidden} {
		assert.True(t, IsBusiness(fmt.Errorf("purchase: %w", kind)), kind.Error())
	}
}
