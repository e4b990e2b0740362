package datapoint

import (
	"math"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/stretchr/testify/require"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/epoch"
)

func testPool() box.Pool {
	return box.Pool{
		Raw:   box.RawBox{CreationHeight: 1000},
		Price: 100,
		Epoch: 17,
	}
}

func testParams(minQuorum int) box.RefreshParams {
	return box.RefreshParams{
		EpochLength:         30,
		BufferLength:        4,
		MinDatapoints:       minQuorum,
		MaxDeviationPercent: 5,
		RewardPerDatapoint:  2,
	}
}

func dp(id byte, price int64, ep idx.Epoch, height idx.Block) box.Datapoint {
	var bid box.ID
	bid[0] = id
	return box.Datapoint{
		Raw:   box.RawBox{ID: bid, CreationHeight: height},
		Epoch: ep,
		Price: price,
	}
}

func prices(dps []box.Datapoint) []int64 {
	out := make([]int64, len(dps))
	for i, d := range dps {
		out[i] = d.Price
	}
	return out
}

func TestFilter(t *testing.T) {
	pool := testPool()
	w := epoch.NewWindow(pool, testParams(2))

	dps := []box.Datapoint{
		dp(1, 100, 17, 1010), // valid
		dp(2, 100, 16, 1010), // stale epoch reference
		dp(3, 100, 18, 1010), // future epoch reference
		dp(4, 100, 17, 999),  // committed before the window
		dp(5, 100, 17, 1030), // committed after the window
		dp(6, 100, 17, 1000), // first height of the window
		dp(7, 100, 17, 1029), // last height of the window
	}
	valid := Filter(dps, pool, w)

	require.Len(t, valid, 3)
	for _, d := range valid {
		require.Contains(t, []byte{1, 6, 7}, d.Raw.ID[0])
	}
}

func TestAggregateDropsOutliers(t *testing.T) {
	pool := testPool()
	dps := []box.Datapoint{
		dp(1, 100, 17, 1010),
		dp(2, 101, 17, 1011),
		dp(3, 99, 17, 1012),
		dp(4, 1000, 17, 1013),
	}

	consensus, err := Aggregate(dps, pool, testParams(2))
	require.NoError(t, err)
	require.Equal(t, int64(100), consensus.Price)
	require.Equal(t, []int64{101, 100, 99}, prices(consensus.Datapoints))
}

func TestAggregateQuorumBoundary(t *testing.T) {
	pool := testPool()
	dps := []box.Datapoint{
		dp(1, 100, 17, 1010),
		dp(2, 101, 17, 1011),
		dp(3, 99, 17, 1012),
		dp(4, 1000, 17, 1013), // trimmed, does not count toward quorum
	}

	_, err := Aggregate(dps, pool, testParams(4))
	require.ErrorIs(t, err, ErrInsufficientQuorum)

	consensus, err := Aggregate(dps, pool, testParams(3))
	require.NoError(t, err)
	require.Equal(t, int64(100), consensus.Price)
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate(nil, testPool(), testParams(1))
	require.ErrorIs(t, err, ErrInsufficientQuorum)
}

func TestAggregateLowerMedian(t *testing.T) {
	// Even-sized set: the median is the lower middle element, so 200 is
	// measured against 100 and trimmed, not the other way around.
	pool := testPool()
	dps := []box.Datapoint{
		dp(1, 100, 17, 1010),
		dp(2, 200, 17, 1011),
	}

	consensus, err := Aggregate(dps, pool, testParams(1))
	require.NoError(t, err)
	require.Equal(t, int64(100), consensus.Price)
	require.Equal(t, []int64{100}, prices(consensus.Datapoints))
}

func TestAggregateTrimsIteratively(t *testing.T) {
	// First pass drops 106 and 120 against median 100, second pass keeps
	// 100 against the new median 96.
	pool := testPool()
	dps := []box.Datapoint{
		dp(1, 96, 17, 1010),
		dp(2, 100, 17, 1011),
		dp(3, 106, 17, 1012),
		dp(4, 120, 17, 1013),
	}

	consensus, err := Aggregate(dps, pool, testParams(2))
	require.NoError(t, err)
	require.Equal(t, int64(98), consensus.Price)
	require.Equal(t, []int64{100, 96}, prices(consensus.Datapoints))
}

func TestAggregateOrderIsDeterministic(t *testing.T) {
	pool := testPool()
	params := testParams(3)

	a := dp(0x0a, 100, 17, 1010)
	b := dp(0x03, 100, 17, 1011)
	c := dp(0x01, 105, 17, 1012)

	first, err := Aggregate([]box.Datapoint{a, b, c}, pool, params)
	require.NoError(t, err)
	second, err := Aggregate([]box.Datapoint{c, a, b}, pool, params)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, []int64{105, 100, 100}, prices(first.Datapoints))
	// Equal prices order by box id.
	require.Equal(t, byte(0x03), first.Datapoints[1].Raw.ID[0])
	require.Equal(t, byte(0x0a), first.Datapoints[2].Raw.ID[0])
}

func TestAggregateHugePrices(t *testing.T) {
	pool := testPool()
	pa := int64(math.MaxInt64 - 2)
	pb := int64(math.MaxInt64 - 1)
	dps := []box.Datapoint{
		dp(1, pa, 17, 1010),
		dp(2, pb, 17, 1011),
	}

	consensus, err := Aggregate(dps, pool, testParams(2))
	require.NoError(t, err)
	require.Equal(t, pa, consensus.Price)
}
