package logger

import (
	"testing"

	"github.com/cenkalti/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("Debug")
	assert.NoError(t, err)
	assert.Equal(t, log.DEBUG, l)

	l, err = ParseLevel("warning")
	assert.NoError(t, err)
	assert.Equal(t, log.WARNING, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
