package backend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aca-dev/aca/internal/backend"
)

func TestAllocatePercentage(t *testing.T) {
	res := backend.SystemResources{TotalMemoryBytes: 8 << 30, CPUCores: 4}

	a := res.AllocatePercentage(0.5)
	assert.Equal(t, int64(4<<30), a.MemoryBytes)
	assert.Equal(t, int64(200_000), a.CPUQuota)

	assert.Equal(t, backend.Allocation{}, res.AllocatePercentage(-1))
	assert.Equal(t, int64(400_000), res.AllocatePercentage(3).CPUQuota)
}

func TestContainerConfig_OverridesTakePrecedence(t *testing.T) {
	res := backend.SystemResources{TotalMemoryBytes: 8 << 30, CPUCores: 4}
	mem := int64(512 << 20)
	cfg := backend.ContainerConfig{ResourcePercentage: 0.25, MemoryLimitBytes: &mem}

	a := cfg.Allocation(res)
	assert.Equal(t, mem, a.MemoryBytes)
	assert.Equal(t, int64(100_000), a.CPUQuota)

	quota := int64(50_000)
	cfg.CPUQuota = &quota
	assert.Equal(t, quota, cfg.Allocation(res).CPUQuota)
}

func TestContainerConfig_Validate(t *testing.T) {
	assert.NoError(t, backend.ContainerConfig{ResourcePercentage: 1}.Validate())
	assert.Error(t, backend.ContainerConfig{ResourcePercentage: 1.5}.Validate())
	assert.Error(t, backend.ContainerConfig{ResourcePercentage: -0.1}.Validate())

	zero := int64(0)
	assert.Error(t, backend.ContainerConfig{MemoryLimitBytes: &zero}.Validate())
	assert.Error(t, backend.ContainerConfig{CPUQuota: &zero}.Validate())
}

func TestDetectResources(t *testing.T) {
	res := backend.DetectResources()
	assert.Positive(t, res.CPUCores)
	assert.Positive(t, res.TotalMemoryBytes)
}
