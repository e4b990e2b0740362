// Package pool defines the deployment parameters of an oracle pool: the
// protocol token ids, the guard scripts, and the economic constants every
// transaction must respect.
//
// The Rules type is the central configuration structure handed to the oracle
// loop and the transaction builder. Chain-enforced epoch parameters (epoch
// length, quorum, deviation bound, reward rate) are NOT part of Rules: they
// live in the refresh box registers and are re-read from the ledger every
// tick.
package pool

import (
	"encoding/json"
	"fmt"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/pool/contracts"
)

const (
	// DefaultBaseFee is the miner fee in nano-units attached to every
	// transaction the oracle builds.
	DefaultBaseFee uint64 = 1100000

	// DefaultMinBoxValue is the minimum nano-unit value a created box must
	// carry to stay above the ledger's storage rent threshold.
	DefaultMinBoxValue uint64 = 10000000
)

// TokenSet identifies the on-ledger artifacts of one pool deployment.
// All six tokens are minted at bootstrap and never re-issued.
type TokenSet struct {
	PoolNFT     box.TokenID `json:"poolNFT"`
	RefreshNFT  box.TokenID `json:"refreshNFT"`
	OracleToken box.TokenID `json:"oracleToken"`
	RewardToken box.TokenID `json:"rewardToken"`
	UpdateNFT   box.TokenID `json:"updateNFT"`
	BallotToken box.TokenID `json:"ballotToken"`
}

// Scripts holds the serialized guard scripts of the deployment, unprefixed hex.
type Scripts struct {
	Pool    string `json:"pool"`
	Refresh string `json:"refresh"`
	Oracle  string `json:"oracle"`
	Update  string `json:"update"`
	Ballot  string `json:"ballot"`
}

// EconomyRules contains the fee and storage-rent parameters used when
// assembling transactions.
type EconomyRules struct {
	BaseFee     uint64 `json:"baseFee"`
	MinBoxValue uint64 `json:"minBoxValue"`
}

// Rules describes the complete configuration of one pool deployment.
type Rules struct {
	Name    string       `json:"name"`
	Tokens  TokenSet     `json:"tokens"`
	Scripts Scripts      `json:"scripts"`
	Economy EconomyRules `json:"economy"`
}

// TestNetRules returns the testnet pool deployment.
func TestNetRules() Rules {
	return Rules{
		Name: "test",
		Tokens: TokenSet{
			PoolNFT:     box.MustTokenID("193ad1f35c7dc8ac7e27dee7c2bc15e11fa9df24b2984c31e7a3a423e25c17e8"),
			RefreshNFT:  box.MustTokenID("c44c61d2eaade8107e4fe9e01b1e6b6fe5c2c35e9cd9de0ffd930106b7f3c591"),
			OracleToken: box.MustTokenID("c43a3cb9a1854334a1a5daa55e38f96a2a0dc2aaefc89611e2c06a7e6c3dce60"),
			RewardToken: box.MustTokenID("e24b439a078960a48667aefbcf58c3a9b1451ac55c95940747fb3a4335a4173a"),
			UpdateNFT:   box.MustTokenID("001b2069acf6bf206a3b9449c6e3966d4339be43fadad05484bddb040c37faa4"),
			BallotToken: box.MustTokenID("4ef9c5fa01d634eea5177eb9d5d73889a4b4a458c4024b1b646fc332c2346c27"),
		},
		Scripts: DefaultScripts(),
		Economy: DefaultEconomyRules(),
	}
}

// FakeNetRules returns a deterministic deployment for local networks and
// tests. Token ids are synthetic; scripts and economy match the real
// deployments so transaction shapes stay realistic.
func FakeNetRules() Rules {
	return Rules{
		Name: "fake",
		Tokens: TokenSet{
			PoolNFT:     fakeTokenID(0x01),
			RefreshNFT:  fakeTokenID(0x02),
			OracleToken: fakeTokenID(0x03),
			RewardToken: fakeTokenID(0x04),
			UpdateNFT:   fakeTokenID(0x05),
			BallotToken: fakeTokenID(0x06),
		},
		Scripts: DefaultScripts(),
		Economy: DefaultEconomyRules(),
	}
}

// DefaultScripts returns the deployed guard script set.
func DefaultScripts() Scripts {
	return Scripts{
		Pool:    contracts.PoolTree,
		Refresh: contracts.RefreshTree,
		Oracle:  contracts.OracleTree,
		Update:  contracts.UpdateTree,
		Ballot:  contracts.BallotTree,
	}
}

// DefaultEconomyRules returns the fee parameters shared by all deployments.
func DefaultEconomyRules() EconomyRules {
	return EconomyRules{
		BaseFee:     DefaultBaseFee,
		MinBoxValue: DefaultMinBoxValue,
	}
}

// RulesByName resolves a preset deployment by its name.
func RulesByName(name string) (Rules, error) {
	for _, r := range []Rules{TestNetRules(), FakeNetRules()} {
		if r.Name == name {
			return r, nil
		}
	}
	return Rules{}, fmt.Errorf("unknown pool deployment %q", name)
}

// PresetNames lists the known deployment presets.
func PresetNames() []string {
	return []string{TestNetRules().Name, FakeNetRules().Name}
}

// Validate checks internal consistency of the deployment parameters.
func (r Rules) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("pool rules: empty name")
	}
	tokens := map[string]box.TokenID{
		"pool NFT":     r.Tokens.PoolNFT,
		"refresh NFT":  r.Tokens.RefreshNFT,
		"oracle token": r.Tokens.OracleToken,
		"reward token": r.Tokens.RewardToken,
		"update NFT":   r.Tokens.UpdateNFT,
		"ballot token": r.Tokens.BallotToken,
	}
	seen := make(map[box.TokenID]string, len(tokens))
	for name, id := range tokens {
		if id.IsZero() {
			return fmt.Errorf("pool rules %s: zero %s id", r.Name, name)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("pool rules %s: %s and %s share token id %s", r.Name, prev, name, id)
		}
		seen[id] = name
	}
	scripts := map[string]string{
		"pool":    r.Scripts.Pool,
		"refresh": r.Scripts.Refresh,
		"oracle":  r.Scripts.Oracle,
		"update":  r.Scripts.Update,
		"ballot":  r.Scripts.Ballot,
	}
	for name, script := range scripts {
		if script == "" {
			return fmt.Errorf("pool rules %s: empty %s script", r.Name, name)
		}
	}
	if r.Economy.BaseFee == 0 {
		return fmt.Errorf("pool rules %s: zero base fee", r.Name)
	}
	if r.Economy.MinBoxValue == 0 {
		return fmt.Errorf("pool rules %s: zero min box value", r.Name)
	}
	return nil
}

// String returns a JSON representation of Rules for logging.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}

func fakeTokenID(tag byte) box.TokenID {
	var id box.TokenID
	for i := range id {
		id[i] = tag
	}
	return id
}
