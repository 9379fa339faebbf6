package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobID(t *testing.T) {
	ctx := WithJobID(context.Background(), "job-1")
	assert.Equal(t, "job-1", JobID(ctx))
}

func TestJobID_Empty(t *testing.T) {
	assert.Equal(t, "", JobID(context.Background()))
}

func TestDefaultBackoff(t *testing.T) {
	b := DefaultBackoff()
	for i := 1; i < 5; i++ {
		d := b(i)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Duration(i)*time.Second*10)
	}
}

func TestNoBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), NoBackoff()(5))
}

func TestDefaultBackoffOrTest(t *testing.T) {
	assert.Equal(t, time.Duration(0), DefaultBackoffOrTest(true)(3))
	assert.LessOrEqual(t, DefaultBackoffOrTest(false)(1), time.Second*10)
}

func TestDefaultOpts(t *testing.T) {
	opts := DefaultOpts[string]()
	assert.NotNil(t, opts.failureHandler)
	assert.NotNil(t, opts.backoff)
	assert.Equal(t, time.Minute*15, opts.timeout)

	opts = opts.WithTimeout(time.Minute)
	assert.Equal(t, time.Minute, opts.timeout)
}
