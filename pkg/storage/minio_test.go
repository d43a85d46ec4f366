package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	assert.Equal(t, "screenshots/3f2a.png", ObjectName("3f2a"))
}
