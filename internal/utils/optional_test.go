package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamePtr(t *testing.T) {
	assert.True(t, SamePtr[int](nil, nil))
	assert.False(t, SamePtr(Ptr(1), nil))
	assert.False(t, SamePtr(nil, Ptr(1)))
	assert.True(t, SamePtr(Ptr(1), Ptr(1)))
	assert.False(t, SamePtr(Ptr(1), Ptr(2)))
}

func TestNonBlank(t *testing.T) {
	assert.Nil(t, NonBlank(" \t "))
	assert.Equal(t, Ptr("x"), NonBlank("  x "))
}
