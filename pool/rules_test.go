package pool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oraclesuite/go-oraclepool/box"
)

func TestPresetsValidate(t *testing.T) {
	for _, rules := range []Rules{TestNetRules(), FakeNetRules()} {
		t.Run(rules.Name, func(t *testing.T) {
			require.NoError(t, rules.Validate())
		})
	}
}

func TestTestNetRules(t *testing.T) {
	rules := TestNetRules()

	require.Equal(t, "test", rules.Name)
	require.Equal(t, "193ad1f35c7dc8ac7e27dee7c2bc15e11fa9df24b2984c31e7a3a423e25c17e8", rules.Tokens.PoolNFT.String())
	require.Equal(t, "c44c61d2eaade8107e4fe9e01b1e6b6fe5c2c35e9cd9de0ffd930106b7f3c591", rules.Tokens.RefreshNFT.String())
	require.Equal(t, "c43a3cb9a1854334a1a5daa55e38f96a2a0dc2aaefc89611e2c06a7e6c3dce60", rules.Tokens.OracleToken.String())
	require.Equal(t, "e24b439a078960a48667aefbcf58c3a9b1451ac55c95940747fb3a4335a4173a", rules.Tokens.RewardToken.String())
	require.Equal(t, uint64(1100000), rules.Economy.BaseFee)
	require.Equal(t, uint64(10000000), rules.Economy.MinBoxValue)
}

func TestRulesByName(t *testing.T) {
	rules, err := RulesByName("fake")
	require.NoError(t, err)
	require.Equal(t, FakeNetRules(), rules)

	_, err = RulesByName("nosuch")
	require.Error(t, err)

	require.Equal(t, []string{"test", "fake"}, PresetNames())
}

func TestValidateRejectsBrokenRules(t *testing.T) {
	breakRules := map[string]func(*Rules){
		"empty name":         func(r *Rules) { r.Name = "" },
		"zero pool NFT":      func(r *Rules) { r.Tokens.PoolNFT = box.TokenID{} },
		"zero reward token":  func(r *Rules) { r.Tokens.RewardToken = box.TokenID{} },
		"duplicate token id": func(r *Rules) { r.Tokens.RefreshNFT = r.Tokens.PoolNFT },
		"empty pool script":  func(r *Rules) { r.Scripts.Pool = "" },
		"zero base fee":      func(r *Rules) { r.Economy.BaseFee = 0 },
		"zero min box value": func(r *Rules) { r.Economy.MinBoxValue = 0 },
	}
	for name, mutate := range breakRules {
		t.Run(name, func(t *testing.T) {
			rules := TestNetRules()
			mutate(&rules)
			require.Error(t, rules.Validate())
		})
	}
}

func TestRulesString(t *testing.T) {
	var decoded Rules
	require.NoError(t, json.Unmarshal([]byte(TestNetRules().String()), &decoded))
	require.Equal(t, TestNetRules(), decoded)
}
