package node

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/box/oraclepk"
	"github.com/oraclesuite/go-oraclepool/pool"
	"github.com/oraclesuite/go-oraclepool/utils/sigma"
)

// ScanID references a UTXO-set scan registered on the node.
type ScanID int

// trackRule is a node-side box filter. Leaves match an asset id, the guard
// script, or the serialized value of one register; "and" composes them.
type trackRule struct {
	Predicate string      `json:"predicate"`
	Args      []trackRule `json:"args,omitempty"`
	AssetID   string      `json:"assetId,omitempty"`
	Register  string      `json:"register,omitempty"`
	Value     string      `json:"value,omitempty"`
}

func and(args ...trackRule) trackRule {
	return trackRule{Predicate: "and", Args: args}
}

func containsAsset(id box.TokenID) trackRule {
	return trackRule{Predicate: "containsAsset", AssetID: id.String()}
}

func scriptEquals(script string) trackRule {
	return trackRule{Predicate: "equals", Value: script}
}

func registerEquals(name string, v sigma.Value) trackRule {
	return trackRule{Predicate: "equals", Register: name, Value: hex.EncodeToString(v.Encode())}
}

// Scan pairs a human-readable name with its tracking rule, in the shape
// the register endpoint expects.
type Scan struct {
	Name string    `json:"scanName"`
	Rule trackRule `json:"trackingRule"`
}

// PoolScan matches the live pool box: pool singleton at the pool guard.
func PoolScan(rules pool.Rules) Scan {
	return Scan{
		Name: "Pool Box Scan",
		Rule: and(containsAsset(rules.Tokens.PoolNFT), scriptEquals(rules.Scripts.Pool)),
	}
}

// RefreshScan matches the refresh box carrying the reward treasury.
func RefreshScan(rules pool.Rules) Scan {
	return Scan{
		Name: "Refresh Box Scan",
		Rule: and(containsAsset(rules.Tokens.RefreshNFT), scriptEquals(rules.Scripts.Refresh)),
	}
}

// DatapointScan matches every oracle's participation box, committed or not.
func DatapointScan(rules pool.Rules) Scan {
	return Scan{
		Name: "All Datapoints Scan",
		Rule: and(containsAsset(rules.Tokens.OracleToken), scriptEquals(rules.Scripts.Oracle)),
	}
}

// LocalOracleScan narrows the datapoint scan to the box holding our key.
func LocalOracleScan(rules pool.Rules, pk oraclepk.PubKey) Scan {
	return Scan{
		Name: "Local Oracle Datapoint Scan",
		Rule: and(
			containsAsset(rules.Tokens.OracleToken),
			scriptEquals(rules.Scripts.Oracle),
			registerEquals(box.RegR4, sigma.GroupElement(pk.Raw)),
		),
	}
}

// RegisterScan installs a tracking rule on the node and returns its id.
func (c *Client) RegisterScan(ctx context.Context, scan Scan) (ScanID, error) {
	var resp struct {
		ScanID ScanID `json:"scanId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/scan/register", scan, &resp); err != nil {
		return 0, err
	}
	c.log.WithFields(logrus.Fields{"scan": scan.Name, "id": resp.ScanID}).Info("scan registered")
	return resp.ScanID, nil
}

// DeregisterScan removes a scan from the node. Boxes it matched stay in
// the UTXO set untouched.
func (c *Client) DeregisterScan(ctx context.Context, id ScanID) error {
	req := struct {
		ScanID ScanID `json:"scanId"`
	}{ScanID: id}
	return c.doJSON(ctx, http.MethodPost, "/scan/deregister", req, nil)
}

// UnspentScanBoxes lists the live boxes a scan has matched.
func (c *Client) UnspentScanBoxes(ctx context.Context, id ScanID) ([]box.RawBox, error) {
	var list []boxEnvelope
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/scan/unspentBoxes/%d", id), nil, &list); err != nil {
		return nil, err
	}
	return unwrapBoxes(list), nil
}

// ScanSet holds the ids of the four scans the oracle relies on. Field tags
// double as the on-disk document keys, matching the scan names.
type ScanSet struct {
	Pool        ScanID `json:"Pool Box Scan"`
	Refresh     ScanID `json:"Refresh Box Scan"`
	Datapoints  ScanID `json:"All Datapoints Scan"`
	LocalOracle ScanID `json:"Local Oracle Datapoint Scan"`
}

// ScanFileName is the scan-id document kept in the datadir.
const ScanFileName = "scanIDs.json"

// LoadScanSet reads previously registered scan ids. A missing file is
// reported with os.IsNotExist semantics.
func LoadScanSet(dataDir string) (ScanSet, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, ScanFileName))
	if err != nil {
		return ScanSet{}, err
	}
	var set ScanSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return ScanSet{}, fmt.Errorf("node: parse %s: %w", ScanFileName, err)
	}
	return set, nil
}

// Save persists the scan ids so a restart reattaches to the node's
// existing scans instead of registering duplicates.
func (s ScanSet) Save(dataDir string) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, ScanFileName), raw, 0o644)
}

// EnsureScans loads the persisted scan set, or registers all four scans
// and persists the resulting ids.
func EnsureScans(ctx context.Context, c *Client, rules pool.Rules, pk oraclepk.PubKey, dataDir string) (ScanSet, error) {
	set, err := LoadScanSet(dataDir)
	if err == nil {
		return set, nil
	}
	if !os.IsNotExist(err) {
		return ScanSet{}, err
	}

	for _, reg := range []struct {
		scan Scan
		dst  *ScanID
	}{
		{PoolScan(rules), &set.Pool},
		{RefreshScan(rules), &set.Refresh},
		{DatapointScan(rules), &set.Datapoints},
		{LocalOracleScan(rules, pk), &set.LocalOracle},
	} {
		id, err := c.RegisterScan(ctx, reg.scan)
		if err != nil {
			return ScanSet{}, err
		}
		*reg.dst = id
	}
	if err := set.Save(dataDir); err != nil {
		return ScanSet{}, err
	}
	return set, nil
}
