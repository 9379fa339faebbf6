package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "NONE", None.String())
	assert.Equal(t, "PENDING", Pending.String())
	assert.Equal(t, "PROCESSING", Working.String())
	assert.Equal(t, "COMPLETED", Completed.String())
	assert.Equal(t, "FAILED", Failed.String())
	assert.Equal(t, "", Status(0).String())
}

func TestFrom(t *testing.T) {
	assert.Equal(t, None, From("NONE"))
	assert.Equal(t, Pending, From("PENDING"))
	assert.Equal(t, Working, From("PROCESSING"))
	assert.Equal(t, Completed, From("COMPLETED"))
	assert.Equal(t, Failed, From("FAILED"))
	assert.Equal(t, Status(0), From("olia"))
}
