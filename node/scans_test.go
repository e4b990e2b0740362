package node

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oraclesuite/go-oraclepool/box/oraclepk"
	"github.com/oraclesuite/go-oraclepool/pool"
)

const scanTestPKHex = "02725e8878d5198ca7f5853dddf35560ddab05ab0a26adc7e5b04e8737a16c2c33"

func TestLocalOracleScanRule(t *testing.T) {
	rules := pool.FakeNetRules()
	pk, err := oraclepk.FromString(scanTestPKHex)
	require.NoError(t, err)

	scan := LocalOracleScan(rules, pk)
	require.Equal(t, "Local Oracle Datapoint Scan", scan.Name)
	require.Equal(t, "and", scan.Rule.Predicate)
	require.Len(t, scan.Rule.Args, 3)

	require.Equal(t, "containsAsset", scan.Rule.Args[0].Predicate)
	require.Equal(t, rules.Tokens.OracleToken.String(), scan.Rule.Args[0].AssetID)

	require.Equal(t, "equals", scan.Rule.Args[1].Predicate)
	require.Equal(t, rules.Scripts.Oracle, scan.Rule.Args[1].Value)

	require.Equal(t, "equals", scan.Rule.Args[2].Predicate)
	require.Equal(t, "R4", scan.Rule.Args[2].Register)
	require.Equal(t, "07"+scanTestPKHex, scan.Rule.Args[2].Value)
}

func TestScanRuleWireShape(t *testing.T) {
	rules := pool.FakeNetRules()
	raw, err := json.Marshal(PoolScan(rules))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "Pool Box Scan", doc["scanName"])

	rule := doc["trackingRule"].(map[string]any)
	require.Equal(t, "and", rule["predicate"])
	args := rule["args"].([]any)
	require.Len(t, args, 2)

	leaf := args[0].(map[string]any)
	require.Equal(t, "containsAsset", leaf["predicate"])
	// Leaves must not leak empty fields, the node rejects them.
	_, hasArgs := leaf["args"]
	require.False(t, hasArgs)
	_, hasRegister := leaf["register"]
	require.False(t, hasRegister)
}

func TestRegisterAndListScans(t *testing.T) {
	rules := pool.FakeNetRules()
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scan/register":
			var scan Scan
			require.NoError(t, json.NewDecoder(r.Body).Decode(&scan))
			require.Equal(t, "Refresh Box Scan", scan.Name)
			writeJSON(t, w, map[string]any{"scanId": 186})
		case "/scan/unspentBoxes/186":
			writeJSON(t, w, []map[string]any{})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	id, err := c.RegisterScan(context.Background(), RefreshScan(rules))
	require.NoError(t, err)
	require.Equal(t, ScanID(186), id)

	boxes, err := c.UnspentScanBoxes(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, boxes)
}

func TestScanSetRoundtrip(t *testing.T) {
	dir := t.TempDir()
	set := ScanSet{Pool: 11, Refresh: 12, Datapoints: 13, LocalOracle: 14}
	require.NoError(t, set.Save(dir))

	raw, err := os.ReadFile(filepath.Join(dir, ScanFileName))
	require.NoError(t, err)
	var doc map[string]int
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, 11, doc["Pool Box Scan"])
	require.Equal(t, 14, doc["Local Oracle Datapoint Scan"])

	loaded, err := LoadScanSet(dir)
	require.NoError(t, err)
	require.Equal(t, set, loaded)
}

func TestEnsureScansRegistersOnceAndPersists(t *testing.T) {
	rules := pool.FakeNetRules()
	pk, err := oraclepk.FromString(scanTestPKHex)
	require.NoError(t, err)

	var registrations int
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/scan/register", r.URL.Path)
		registrations++
		writeJSON(t, w, map[string]any{"scanId": 100 + registrations})
	}))

	dir := t.TempDir()
	set, err := EnsureScans(context.Background(), c, rules, pk, dir)
	require.NoError(t, err)
	require.Equal(t, ScanSet{Pool: 101, Refresh: 102, Datapoints: 103, LocalOracle: 104}, set)
	require.Equal(t, 4, registrations)

	// A second call reattaches through the persisted file.
	again, err := EnsureScans(context.Background(), c, rules, pk, dir)
	require.NoError(t, err)
	require.Equal(t, set, again)
	require.Equal(t, 4, registrations)
}
