package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEfSearch(t *testing.T) {
	assert.Equal(t, 100, efSearch(5))
	assert.Equal(t, 200, efSearch(50))
	assert.Equal(t, 1000, efSearch(400))
}
