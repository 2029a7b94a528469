package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"cargoport/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCargoID(ctx, "abc")
	ctx = services.WithJob(ctx, "ship_cargoes")
	ctx = services.WithRequestID(ctx, "req-123")

	id, ok := services.CargoIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	job, ok := services.JobFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "ship_cargoes", job)

	rid, ok := services.RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-123", rid)
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJob(ctx, "")
	ctx = services.WithCargoID(ctx, "")

	_, ok := services.JobFromContext(ctx)
	assert.False(t, ok, "blank job is not stored")
	_, ok = services.CargoIDFromContext(ctx)
	assert.False(t, ok, "blank cargo id is not stored")
}
