package stdx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMust0(t *testing.T) {
	assert.NotPanics(t, func() { Must0(nil) })
	assert.Panics(t, func() { Must0(errors.New("boom")) })
}

func TestMust1(t *testing.T) {
	assert.Equal(t, 42, Must1(42, nil))
	assert.Panics(t, func() { Must1(0, errors.New("boom")) })
}

func TestMust2(t *testing.T) {
	a, b := Must2("a", 1, nil)
	assert.Equal(t, "a", a)
	assert.Equal(t, 1, b)
	assert.Panics(t, func() { Must2("", 0, errors.New("boom")) })
}
