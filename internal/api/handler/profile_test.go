package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDisplayName(t *testing.T) {
	assert.Equal(t, "User123456", defaultDisplayName("123456"))
	assert.Equal(t, "Anonymous", defaultDisplayName("guest-6f1c2a"))
}
