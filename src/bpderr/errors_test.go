package bpderr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWrapsSentinelByDefault(t *testing.T) {
	err := New("open mydb.page", FileNotFound, nil)
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.Contains(t, err.Error(), "FILE_NOT_FOUND")
	assert.Contains(t, err.Error(), "open mydb.page")
}

func TestNewWrapsUnderlyingCause(t *testing.T) {
	cause := errors.New("disk full")
	err := New("write page 3", WriteFailed, cause)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "disk full")
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "READ_NON_EXISTING_PAGE", ReadNonExistingPage.String())
	assert.Equal(t, "UNKNOWN", Code(999).String())
}
