package node

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oraclesuite/go-oraclepool/box"
	"github.com/oraclesuite/go-oraclepool/pool"
	"github.com/oraclesuite/go-oraclepool/submit"
	"github.com/oraclesuite/go-oraclepool/utils/sigma"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{URL: srv.URL, APIKey: "hunter2"}, nil)
	require.NoError(t, err)
	return c, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{URL: "ftp://127.0.0.1"}, nil)
	require.Error(t, err)

	_, err = NewClient(Config{URL: "http://\x7f"}, nil)
	require.Error(t, err)
}

func TestHeight(t *testing.T) {
	var gotKey string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/info", r.URL.Path)
		gotKey = r.Header.Get("api_key")
		writeJSON(t, w, map[string]any{"fullHeight": 141887, "headersHeight": 141890})
	}))

	h, err := c.Height(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 141887, h)
	require.Equal(t, "hunter2", gotKey)
}

func TestWalletBoxesUnwrapsEnvelopes(t *testing.T) {
	rules := pool.FakeNetRules()
	raw := box.RawBox{
		ID:             box.MustID("0101010101010101010101010101010101010101010101010101010101010101"),
		Value:          5000000,
		Script:         rules.Scripts.Oracle,
		CreationHeight: 100,
	}
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wallet/boxes/unspent", r.URL.Path)
		writeJSON(t, w, []map[string]any{
			{"box": raw, "confirmationsNum": 12},
		})
	}))

	boxes, err := c.WalletBoxes(context.Background())
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Equal(t, raw.ID, boxes[0].ID)
	require.EqualValues(t, 5000000, boxes[0].Value)
}

func TestWalletStatus(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"isInitialized": true, "isUnlocked": false, "walletHeight": 99})
	}))

	st, err := c.WalletStatus(context.Background())
	require.NoError(t, err)
	require.True(t, st.Initialized)
	require.False(t, st.Unlocked)
	require.False(t, st.Ready())
	require.EqualValues(t, 99, st.Height)
}

func TestSignAndSubmit(t *testing.T) {
	in := box.MustID("2222222222222222222222222222222222222222222222222222222222222222")
	txID := "e24b439a078960a48667aefbcf58c3a9b1451ac55c95940747fb3a4335a4173a"
	tx := box.UnsignedTx{
		Inputs: []box.ID{in},
		Outputs: []box.Candidate{{
			Value:          1000,
			Script:         "0008cd02",
			Registers:      box.EncodeRegisters(sigma.Long(7)),
			CreationHeight: 10,
		}},
	}

	var signedBody []byte
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wallet/transaction/sign":
			var req struct {
				Tx struct {
					Inputs []struct {
						BoxID string `json:"boxId"`
					} `json:"inputs"`
					Outputs []box.Candidate `json:"outputs"`
				} `json:"tx"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Tx.Inputs, 1)
			require.Equal(t, in.String(), req.Tx.Inputs[0].BoxID)
			require.Len(t, req.Tx.Outputs, 1)
			writeJSON(t, w, map[string]any{"id": txID, "inputs": []any{}, "outputs": []any{}})
		case "/transactions":
			var echo map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&echo))
			require.Equal(t, txID, echo["id"])
			signedBody, _ = json.Marshal(echo)
			writeJSON(t, w, txID)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	id, err := c.SignAndSubmit(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, txID, id.String())
	require.NotEmpty(t, signedBody)
}

func TestErrorMapping(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		target error
		class  submit.Class
	}{
		"server error": {
			status: http.StatusInternalServerError,
			body:   `{"error":500,"reason":"internal"}`,
			target: submit.ErrUnavailable,
			class:  submit.ClassNodeUnavailable,
		},
		"double spend": {
			status: http.StatusBadRequest,
			body:   `{"error":400,"detail":"Double spending attempt for box 4b42"}`,
			target: submit.ErrStaleInput,
			class:  submit.ClassStaleInput,
		},
		"unknown box": {
			status: http.StatusBadRequest,
			body:   `{"detail":"Unknown box 4b42 referenced in input 0"}`,
			target: submit.ErrStaleInput,
			class:  submit.ClassStaleInput,
		},
		"script failure": {
			status: http.StatusBadRequest,
			body:   `{"detail":"Scripts of all transaction inputs should pass verification"}`,
			target: submit.ErrRejected,
			class:  submit.ClassRejectedByContract,
		},
		"unclassified client error": {
			status: http.StatusBadRequest,
			body:   `{"detail":"bad request"}`,
			target: nil,
			class:  submit.ClassNodeUnavailable,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))

			_, err := c.Height(context.Background())
			require.Error(t, err)
			if tc.target != nil {
				require.ErrorIs(t, err, tc.target)
			}
			require.Equal(t, tc.class, submit.Classify(err))
		})
	}
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := NewClient(Config{URL: srv.URL}, nil)
	require.NoError(t, err)
	srv.Close()

	_, err = c.Height(context.Background())
	require.ErrorIs(t, err, submit.ErrUnavailable)
}
