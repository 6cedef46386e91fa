package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortHash(t *testing.T) {
	a := shortHash("123:token")
	assert.Len(t, a, 16)
	assert.Equal(t, a, shortHash("123:token"))
	assert.NotEqual(t, a, shortHash("123:other"))
}
