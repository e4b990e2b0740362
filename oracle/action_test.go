package oracle

import (
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/stretchr/testify/require"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/box/oraclepk"
	"github.com/oraclesuite/go-oraclepool/node"
	"github.com/oraclesuite/go-oraclepool/pool"
	"github.com/oraclesuite/go-oraclepool/utils/sigma"
)

const (
	ownPKHex   = "02725e8878d5198ca7f5853dddf35560ddab05ab0a26adc7e5b04e8737a16c2c33"
	otherPKHex = "031111111111111111111111111111111111111111111111111111111111111111"
)

func actionBoxID(tag byte) box.ID {
	var id box.ID
	id[0] = tag
	return id
}

func mustPK(t *testing.T, hex string) oraclepk.PubKey {
	t.Helper()
	pk, err := oraclepk.FromString(hex)
	require.NoError(t, err)
	return pk
}

// viewFixture builds a View at the given height: pool epoch 17 started at
// block 1000, epoch length 30 with a 4 block buffer, quorum of 2.
func viewFixture(t *testing.T, height idx.Block) *node.View {
	t.Helper()
	rules := pool.FakeNetRules()

	poolRaw := box.RawBox{
		ID:             actionBoxID(0x01),
		Value:          10000000,
		Script:         rules.Scripts.Pool,
		Assets:         []box.Token{{ID: rules.Tokens.PoolNFT, Amount: 1}},
		Registers:      box.EncodeRegisters(sigma.Long(100), sigma.Int(17)),
		CreationHeight: 1000,
	}
	p, err := box.DecodePool(poolRaw, rules.Tokens.PoolNFT)
	require.NoError(t, err)

	refreshRaw := box.RawBox{
		ID:     actionBoxID(0x02),
		Value:  10000000,
		Script: rules.Scripts.Refresh,
		Assets: []box.Token{
			{ID: rules.Tokens.RefreshNFT, Amount: 1},
			{ID: rules.Tokens.RewardToken, Amount: 1000},
		},
		Registers: box.EncodeRegisters(
			sigma.Int(30), sigma.Int(4), sigma.Int(2), sigma.Int(5), sigma.Long(2),
		),
		CreationHeight: 900,
	}
	r, err := box.DecodeRefresh(refreshRaw, rules.Tokens.RefreshNFT)
	require.NoError(t, err)

	return &node.View{Height: height, Pool: p, Refresh: r}
}

func addDatapoint(t *testing.T, view *node.View, tag byte, pkHex string, price int64, ep idx.Epoch, height idx.Block) {
	t.Helper()
	rules := pool.FakeNetRules()
	pk := mustPK(t, pkHex)
	raw := box.RawBox{
		ID:             actionBoxID(tag),
		Value:          10000000,
		Script:         rules.Scripts.Oracle,
		Assets:         []box.Token{{ID: rules.Tokens.OracleToken, Amount: 1}},
		Registers:      box.EncodeRegisters(sigma.GroupElement(pk.Raw), sigma.Int(int32(ep)), sigma.Long(price)),
		CreationHeight: height,
	}
	dp, err := box.DecodeDatapoint(raw, rules.Tokens.OracleToken)
	require.NoError(t, err)
	view.Datapoints = append(view.Datapoints, *dp)
}

func setOwn(t *testing.T, view *node.View, committed bool, ep idx.Epoch, height idx.Block) {
	t.Helper()
	rules := pool.FakeNetRules()
	pk := mustPK(t, ownPKHex)
	regs := box.EncodeRegisters(sigma.GroupElement(pk.Raw))
	if committed {
		regs = box.EncodeRegisters(sigma.GroupElement(pk.Raw), sigma.Int(int32(ep)), sigma.Long(101))
	}
	raw := box.RawBox{
		ID:             actionBoxID(0x10),
		Value:          10000000,
		Script:         rules.Scripts.Oracle,
		Assets:         []box.Token{{ID: rules.Tokens.OracleToken, Amount: 1}},
		Registers:      regs,
		CreationHeight: height,
	}
	own, err := box.DecodeOracle(raw, rules.Tokens.OracleToken)
	require.NoError(t, err)
	view.Own = own
}

func TestDecideCommitsWhileCollecting(t *testing.T) {
	view := viewFixture(t, 1010)
	setOwn(t, view, false, 0, 990)

	d := Decide(view)
	require.Equal(t, ActionCommit, d.Kind)
}

func TestDecideIdlesWhenCommitted(t *testing.T) {
	view := viewFixture(t, 1010)
	setOwn(t, view, true, 17, 1005)

	d := Decide(view)
	require.Equal(t, ActionIdle, d.Kind)
	require.Equal(t, "datapoint already committed", d.Reason)
}

func TestDecideStaleCommitmentRecommits(t *testing.T) {
	// Committed to the previous epoch, before this pool generation.
	view := viewFixture(t, 1010)
	setOwn(t, view, true, 16, 980)

	d := Decide(view)
	require.Equal(t, ActionCommit, d.Kind)
}

func TestDecideRefreshPreemptsIdle(t *testing.T) {
	// Quorum met inside the buffer. Even a committed oracle refreshes,
	// idling here would strand the epoch.
	view := viewFixture(t, 1027)
	setOwn(t, view, true, 17, 1005)
	addDatapoint(t, view, 0x10, ownPKHex, 101, 17, 1005)
	addDatapoint(t, view, 0x11, otherPKHex, 99, 17, 1006)

	d := Decide(view)
	require.Equal(t, ActionRefresh, d.Kind)
	require.EqualValues(t, 100, d.Consensus.Price)
	require.Len(t, d.Consensus.Datapoints, 2)
}

func TestDecideCommitsInBufferBelowQuorum(t *testing.T) {
	view := viewFixture(t, 1027)
	setOwn(t, view, false, 0, 990)
	addDatapoint(t, view, 0x11, otherPKHex, 99, 17, 1006)

	d := Decide(view)
	require.Equal(t, ActionCommit, d.Kind)
}

func TestDecideRefreshesAfterExpiry(t *testing.T) {
	view := viewFixture(t, 1040)
	addDatapoint(t, view, 0x10, ownPKHex, 101, 17, 1005)
	addDatapoint(t, view, 0x11, otherPKHex, 99, 17, 1006)

	d := Decide(view)
	require.Equal(t, ActionRefresh, d.Kind)
}

func TestDecideIdlesExpiredBelowQuorum(t *testing.T) {
	view := viewFixture(t, 1040)
	setOwn(t, view, true, 17, 1005)
	addDatapoint(t, view, 0x10, ownPKHex, 101, 17, 1005)

	d := Decide(view)
	require.Equal(t, ActionIdle, d.Kind)
	require.Equal(t, "epoch expired below quorum", d.Reason)
}

func TestDecideIdlesWithoutParticipationBox(t *testing.T) {
	view := viewFixture(t, 1010)

	d := Decide(view)
	require.Equal(t, ActionIdle, d.Kind)
	require.Equal(t, "no participation box holds our oracle token", d.Reason)
}

func TestDecideIgnoresForeignEpochDatapoints(t *testing.T) {
	// Leftovers from epoch 16 do not count towards quorum.
	view := viewFixture(t, 1027)
	setOwn(t, view, false, 0, 990)
	addDatapoint(t, view, 0x11, otherPKHex, 99, 16, 996)
	addDatapoint(t, view, 0x12, otherPKHex, 98, 16, 997)

	d := Decide(view)
	require.Equal(t, ActionCommit, d.Kind)
}
