// Package contracts carries the serialized guard scripts of the oracle pool
// protocol and helpers for the pay-to-public-key scripts that hold oracle
// funds and reward payouts.
//
// The protocol scripts are fixed byte blobs: participants never compile them,
// they recognize deployed boxes by comparing the script bytes and spend them
// by satisfying the conditions the scripts encode. Token ids of a concrete
// deployment are baked into the blobs at mint time, so each deployment ships
// its own set.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oraclesuite/go-oraclepool/box/oraclepk"
)

var (
	// PoolTree guards the pool box. It permits spending only together with a
	// box holding the refresh NFT or the update NFT.
	PoolTree = "1004040204000e20c44c61d2eaade8107e4fe9e01b1e6b6fe5c2c35e9cd9de0ffd930106b7f3c5910e20001b2069acf6bf206a3b9449c6e3966d4339be43fadad05484bddb040c37faa4d801d6018cb2db6308b2a473000073010001d1ec93720173029372017303"

	// RefreshTree guards the refresh box. It enforces the epoch transition:
	// datapoint freshness, quorum, deviation bounds, rate payouts and the
	// successor pool and refresh boxes.
	RefreshTree = "1016043c040004000e20c43a3cb9a1854334a1a5daa55e38f96a2a0dc2aaefc89611e2c06a7e6c3dce6001000502010105000400040004020402040204040400040a05c8010e20193ad1f35c7dc8ac7e27dee7c2bc15e11fa9df24b2984c31e7a3a423e25c17e80400040404020408d80ed60199a37300d602b2a4730100d603b5a4d901036395e6c672030605eded928cc77203017201938cb2db6308720373020001730393e4c672030504e4c6720205047304d604b17203d605b0720386027305860273067307d901053c413d0563d803d607e4c68c7205020605d6088c720501d6098c720802860272078602ed8c720901908c72080172079a8c7209027207d6068c720502d6078c720501d608db63087202d609b27208730800d60ab2a5730900d60bdb6308720ad60cb2720b730a00d60db27208730b00d60eb2a5730c00ea02ea02ea02ea02ea02ea02ea02ea02ea02ea02ea02ea02ea02ea02ea02ea02ea02cde4c6b27203e4e30004000407d18f8cc77202017201d1927204730dd18c720601d190997207e4c6b27203730e0006059d9c72077e730f057310d1938c7209017311d193b2720b7312007209d1938c720c018c720d01d1928c720c02998c720d027e9c7204731305d193b1720bb17208d193e4c6720a04059d8c7206027e720405d193e4c6720a05049ae4c6720205047314d193c2720ac27202d192c1720ac17202d1928cc7720a0199a37315d193db6308720edb6308a7d193c2720ec2a7d192c1720ec1a7"

	// OracleTree guards per-oracle datapoint boxes. Spendable by the oracle's
	// own key for commits, or by any transaction that also spends the pool box
	// for epoch collection.
	OracleTree = "100a040004000580dac409040004000e20193ad1f35c7dc8ac7e27dee7c2bc15e11fa9df24b2984c31e7a3a423e25c17e80402040204020402d804d601b2a5e4e3000400d602db63087201d603db6308a7d604e4c6a70407ea02d1ededed93b27202730000b2720373010093c27201c2a7e6c67201040792c172017302eb02cd7204d1ededededed938cb2db6308b2a4730300730400017305938cb27202730600018cb2720373070001918cb27202730800028cb272037309000293e4c672010407720492c17201c1a7efe6c672010561"

	// UpdateTree guards the update box used for governed contract migrations.
	UpdateTree = "100e040004000400040204020e20193ad1f35c7dc8ac7e27dee7c2bc15e11fa9df24b2984c31e7a3a423e25c17e80400040004000e204ef9c5fa01d634eea5177eb9d5d73889a4b4a458c4024b1b646fc332c2346c270100050004000404d806d601b2a4730000d602b2db63087201730100d603b2a5730200d604db63087203d605b2a5730300d606b27204730400d1ededed938c7202017305edededed937202b2720473060093c17201c1720393c672010405c67203040593c672010504c672030504efe6c672030661edededed93db63087205db6308a793c27205c2a792c17205c1a7918cc77205018cc7a701efe6c67205046192b0b5a4d9010763d801d609db630872079591b172097307edededed938cb2720973080001730993e4c6720705048cc7a70193e4c67207060ecbc2720393e4c67207070e8c72060193e4c6720708058c720602730a730bd9010741639a8c7207018cb2db63088c720702730c00027e730d05"

	// BallotTree guards per-participant ballot boxes for update voting.
	BallotTree = "10070580dac409040204020400040204000e20001b2069acf6bf206a3b9449c6e3966d4339be43fadad05484bddb040c37faa4d803d601b2a5e4e3000400d602c672010407d603e4c6a70407ea02d1ededede6720293c27201c2a793db63087201db6308a792c172017300eb02cd7203d1ededededed91b1a4730191b1db6308b2a47302007303938cb2db6308b2a473040073050001730693e47202720392c17201c1a7efe6c672010561"

	// FeeTree is the network-wide miner fee proposition. Every transaction
	// pays its fee into a box guarded by this script.
	FeeTree = "1005040004000e36100204a00b08cd0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798ea02d192a39a8cc7a701730073011001020402d19683030193a38cc7b2a57300000193c2b2a57301007473027303830108cdeeac93b1a57304"
)

const payToPublicKeyPrefix = "0008cd"

// PayToPublicKey returns the serialized script that releases a box to the
// holder of the secret key behind pk. Oracle wallets and reward payouts use
// this shape.
func PayToPublicKey(pk oraclepk.PubKey) string {
	return payToPublicKeyPrefix + common.Bytes2Hex(pk.Raw)
}

// ParsePayToPublicKey extracts the public key from a pay-to-public-key script.
// It reports false for every other script shape.
func ParsePayToPublicKey(script string) (oraclepk.PubKey, bool) {
	if !strings.HasPrefix(script, payToPublicKeyPrefix) {
		return oraclepk.PubKey{}, false
	}
	pk, err := oraclepk.FromBytes(common.FromHex(strings.TrimPrefix(script, payToPublicKeyPrefix)))
	if err != nil {
		return oraclepk.PubKey{}, false
	}
	return pk, true
}
