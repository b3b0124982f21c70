package types

import (
	"strings"
	"testing"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestImportStatusTransitions(t *testing.T) {
	testCases := []struct {
		from    ImportStatus
		to      ImportStatus
		allowed bool
	}{
		{ImportStatusPending, ImportStatusProcessing, true},
		{ImportStatusProcessing, ImportStatusImported, true},
		{ImportStatusProcessing, ImportStatusError, true},
		{ImportStatusProcessing, ImportStatusPending, true},
		{ImportStatusError, ImportStatusPending, true},
		{ImportStatusError, ImportStatusProcessing, false},
		{ImportStatusImported, ImportStatusProcessing, false},
		{ImportStatusImported, ImportStatusError, false},
		{ImportStatusPending, ImportStatusImported, false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestImportStatusValidate(t *testing.T) {
	assert.NoError(t, ImportStatusPending.Validate())
	assert.NoError(t, ImportStatusImported.Validate())

	err := ImportStatus("bogus").Validate()
	assert.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestNormalizeAccessKey(t *testing.T) {
	key := strings.Repeat("1234", 11)

	assert.Equal(t, key, NormalizeAccessKey(key))
	assert.Equal(t, key, NormalizeAccessKey("NFe"+key))
	assert.Equal(t, key, NormalizeAccessKey(" "+key[:10]+"."+key[10:20]+"-"+key[20:]+" "))
}

func TestValidateAccessKey(t *testing.T) {
	key := strings.Repeat("1234", 11)

	normalized, err := ValidateAccessKey("NFe " + key)
	assert.NoError(t, err)
	assert.Equal(t, key, normalized)

	_, err = ValidateAccessKey("123")
	assert.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	_, err = ValidateAccessKey("")
	assert.Error(t, err)
}

func TestEnvironmentValidate(t *testing.T) {
	assert.NoError(t, EnvironmentProduction.Validate())
	assert.NoError(t, EnvironmentHomologation.Validate())
	assert.Error(t, Environment("staging").Validate())
}

func TestImportFilterValidate(t *testing.T) {
	filter := NewImportFilter()
	assert.NoError(t, filter.Validate())

	bad := ImportStatus("bogus")
	filter.ImportStatus = &bad
	assert.Error(t, filter.Validate())
}
