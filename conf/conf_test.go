package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	defer Reset()

	assert.EqualValues(t, 200, GetFeeBasisPoints())
	assert.EqualValues(t, 144, GetBlocksPerDay())
	assert.Equal(t, 5*time.Minute, GetCircleTTL())
	assert.Equal(t, time.Minute, GetEscrowTTL())
}

func TestUpdateAndReset(t *testing.T) {
	defer Reset()

	Update(
		WithFeeBasisPoints(150),
		WithCircleTTL(time.Second),
		WithScanWorkers(1),
	)

	assert.EqualValues(t, 150, GetFeeBasisPoints())
	assert.Equal(t, time.Second, GetCircleTTL())
	assert.Equal(t, 1, GetScanWorkers())

	Reset()

	assert.EqualValues(t, 200, GetFeeBasisPoints())
	assert.Equal(t, 5*time.Minute, GetCircleTTL())
	assert.Equal(t, 4, GetScanWorkers())
}
