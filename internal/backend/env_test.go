package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeEnv(t *testing.T) {
	base := []string{"A=1", "B=2", "PATH=/bin"}

	assert.Equal(t, base, mergeEnv(base, nil))

	got := mergeEnv(base, map[string]string{"B": "x", "Z": "9", "C": "3"})
	assert.Equal(t, []string{"A=1", "PATH=/bin", "B=x", "C=3", "Z=9"}, got)
}

func TestParseMemTotal(t *testing.T) {
	data := []byte("MemFree:  100 kB\nMemTotal:       16384 kB\nBuffers: 1 kB\n")
	got, err := parseMemTotal(data)
	assert.NoError(t, err)
	assert.Equal(t, uint64(16384*1024), got)

	_, err = parseMemTotal([]byte("MemFree: 1 kB\n"))
	assert.Error(t, err)

	_, err = parseMemTotal([]byte("MemTotal: lots kB\n"))
	assert.Error(t, err)
}
