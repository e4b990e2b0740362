// Package node is the HTTP client for the ledger node's REST API: chain
// info, UTXO-set scans, and the wallet endpoints used for signing and
// broadcasting. The process never holds key material, the node wallet
// signs on its behalf.
package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/sirupsen/logrus"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/submit"
)

// Config locates the node's REST API.
type Config struct {
	URL     string        `mapstructure:"url" json:"url"`
	APIKey  string        `mapstructure:"api_key" json:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultConfig targets a node on the local machine.
func DefaultConfig() Config {
	return Config{
		URL:     "http://127.0.0.1:9053",
		Timeout: 10 * time.Second,
	}
}

// Client talks to one node. Transport failures and HTTP error responses
// are mapped onto the submit package's sentinel errors so the coordinator
// can classify them without knowing about HTTP.
type Client struct {
	base   *url.URL
	apiKey string
	hc     *http.Client
	log    *logrus.Logger
}

// NewClient validates the config and builds a client around it.
func NewClient(cfg Config, log *logrus.Logger) (*Client, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("node: bad url %q: %w", cfg.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("node: unsupported url scheme in %q", cfg.URL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Client{
		base:   base,
		apiKey: cfg.APIKey,
		hc:     &http.Client{Timeout: timeout},
		log:    log,
	}, nil
}

// doJSON performs one request and decodes the JSON response into out.
// A nil payload sends no body, a nil out discards the response.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("node: encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("node: %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api_key", c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("node: %s: %v: %w", path, err, submit.ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("node: read %s response: %v: %w", path, err, submit.ErrUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(path, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("node: decode %s response: %w", path, err)
		}
	}
	return nil
}

// Height returns the node's current full height.
func (c *Client) Height(ctx context.Context) (idx.Block, error) {
	var info struct {
		FullHeight idx.Block `json:"fullHeight"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		return 0, err
	}
	return info.FullHeight, nil
}

// WalletStatus reports whether the node wallet can sign for us.
type WalletStatus struct {
	Initialized bool      `json:"isInitialized"`
	Unlocked    bool      `json:"isUnlocked"`
	Height      idx.Block `json:"walletHeight"`
}

// Ready means the wallet holds a key and is unlocked.
func (s WalletStatus) Ready() bool {
	return s.Initialized && s.Unlocked
}

func (c *Client) WalletStatus(ctx context.Context) (WalletStatus, error) {
	var st WalletStatus
	if err := c.doJSON(ctx, http.MethodGet, "/wallet/status", nil, &st); err != nil {
		return WalletStatus{}, err
	}
	return st, nil
}

// boxEnvelope is the wrapper shape scan and wallet listings use.
type boxEnvelope struct {
	Box box.RawBox `json:"box"`
}

func unwrapBoxes(list []boxEnvelope) []box.RawBox {
	boxes := make([]box.RawBox, len(list))
	for i, e := range list {
		boxes[i] = e.Box
	}
	return boxes
}

// WalletBoxes lists the wallet's spendable boxes, the funding source for
// fees and change.
func (c *Client) WalletBoxes(ctx context.Context) ([]box.RawBox, error) {
	var list []boxEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/wallet/boxes/unspent", nil, &list); err != nil {
		return nil, err
	}
	return unwrapBoxes(list), nil
}

// wireInput is an unsigned transaction input as the sign endpoint expects
// it. The extension is always empty, no guard script of the pool takes
// context variables.
type wireInput struct {
	BoxID     box.ID            `json:"boxId"`
	Extension map[string]string `json:"extension"`
}

type wireUnsignedTx struct {
	Inputs     []wireInput     `json:"inputs"`
	DataInputs []wireInput     `json:"dataInputs"`
	Outputs    []box.Candidate `json:"outputs"`
}

func wireTx(tx box.UnsignedTx) wireUnsignedTx {
	w := wireUnsignedTx{
		Inputs:     make([]wireInput, len(tx.Inputs)),
		DataInputs: make([]wireInput, len(tx.DataInputs)),
		Outputs:    tx.Outputs,
	}
	for i, id := range tx.Inputs {
		w.Inputs[i] = wireInput{BoxID: id, Extension: map[string]string{}}
	}
	for i, id := range tx.DataInputs {
		w.DataInputs[i] = wireInput{BoxID: id, Extension: map[string]string{}}
	}
	return w
}

// SignAndSubmit hands the transaction to the node wallet for signing and
// broadcasts the result. Satisfies submit.Submitter.
func (c *Client) SignAndSubmit(ctx context.Context, tx box.UnsignedTx) (box.TxID, error) {
	signReq := struct {
		Tx wireUnsignedTx `json:"tx"`
	}{Tx: wireTx(tx)}

	var signed json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/wallet/transaction/sign", signReq, &signed); err != nil {
		return box.TxID{}, err
	}

	var idHex string
	if err := c.doJSON(ctx, http.MethodPost, "/transactions", signed, &idHex); err != nil {
		return box.TxID{}, err
	}
	id, err := box.TxIDFromString(idHex)
	if err != nil {
		return box.TxID{}, fmt.Errorf("node: parse submitted tx id: %w", err)
	}
	c.log.WithField("tx", idHex).Info("transaction submitted")
	return id, nil
}
