package box

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/oraclesuite/go-oraclepool/box/oraclepk"
)

// ErrMalformed marks a box that cannot be accepted as protocol state:
// wrong singleton token, missing or mistyped registers, out-of-range
// values. Callers skip such boxes and continue with the remainder.
var ErrMalformed = errors.New("malformed box")

// Pool is the pool's current finalized state: one instance ledger-wide,
// tagged by the pool singleton.
type Pool struct {
	Raw RawBox

	Price int64     // finalized price of the previous epoch, nano-units
	Epoch idx.Epoch // strictly increases across refreshes
}

// EpochStart is the height the current epoch window opened at.
func (p *Pool) EpochStart() idx.Block {
	return p.Raw.CreationHeight
}

// RefreshParams are the pool parameters carried by the refresh box. They
// are fixed per deployment; the guard scripts enforce the same values.
type RefreshParams struct {
	EpochLength         uint32 // blocks per epoch window
	BufferLength        uint32 // trailing blocks of the window reserved for the refresh
	MinDatapoints       int    // quorum size
	MaxDeviationPercent int64  // widest accepted spread around the median
	RewardPerDatapoint  uint64 // reward tokens paid per collected datapoint
}

func (p RefreshParams) validate() error {
	if p.EpochLength == 0 {
		return fmt.Errorf("%w: zero epoch length", ErrMalformed)
	}
	if p.BufferLength >= p.EpochLength {
		return fmt.Errorf("%w: buffer %d swallows the whole epoch of %d blocks", ErrMalformed, p.BufferLength, p.EpochLength)
	}
	if p.MinDatapoints < 1 {
		return fmt.Errorf("%w: quorum below one", ErrMalformed)
	}
	if p.MaxDeviationPercent < 0 || p.MaxDeviationPercent > 100 {
		return fmt.Errorf("%w: deviation %d%% out of range", ErrMalformed, p.MaxDeviationPercent)
	}
	return nil
}

// Refresh is the pool's parameter and reward-treasury box, tagged by the
// refresh singleton. The second asset slot holds the reward token balance.
type Refresh struct {
	Raw RawBox

	Params        RefreshParams
	RewardToken   TokenID
	RewardBalance uint64
}

// Datapoint is one oracle's commitment for an epoch, tagged by an oracle
// token. The box owned by this process is its local oracle box; foreign
// ones are read-only aggregation inputs.
type Datapoint struct {
	Raw RawBox

	Oracle oraclepk.PubKey
	Epoch  idx.Epoch // pool epoch counter the commitment refers to
	Price  int64
}

// CommitHeight is the height the datapoint was created at.
func (d *Datapoint) CommitHeight() idx.Block {
	return d.Raw.CreationHeight
}

// Oracle is a participation box as the commit builder sees it: the oracle
// token plus the owner key, with or without a committed datapoint. A refresh
// recreates these boxes fresh, so right after one only R4 is set.
type Oracle struct {
	Raw RawBox

	PK oraclepk.PubKey

	// Committed datapoint, valid only when Committed is true.
	Committed bool
	Epoch     idx.Epoch
	Price     int64
}

// CommitHeight is the height the box was created at.
func (o *Oracle) CommitHeight() idx.Block {
	return o.Raw.CreationHeight
}

// DecodePool validates the singleton and registers of a candidate pool box.
func DecodePool(raw RawBox, poolNFT TokenID) (*Pool, error) {
	if !raw.CarriesSingleton(poolNFT) {
		return nil, fmt.Errorf("%w: %s does not carry the pool singleton", ErrMalformed, raw.ID)
	}

	price, err := longRegister(raw.Registers, RegR4)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: non-positive pool price %d", ErrMalformed, price)
	}

	epoch, err := epochRegister(raw.Registers, RegR5)
	if err != nil {
		return nil, err
	}

	return &Pool{
		Raw:   raw,
		Price: price,
		Epoch: epoch,
	}, nil
}

// DecodeRefresh validates the singleton, the reward treasury and the
// parameter registers of a candidate refresh box.
func DecodeRefresh(raw RawBox, refreshNFT TokenID) (*Refresh, error) {
	if !raw.CarriesSingleton(refreshNFT) {
		return nil, fmt.Errorf("%w: %s does not carry the refresh singleton", ErrMalformed, raw.ID)
	}
	if len(raw.Assets) < 2 {
		return nil, fmt.Errorf("%w: refresh box misses the reward treasury", ErrMalformed)
	}
	treasury := raw.Assets[1]

	var params RefreshParams

	epochLength, err := intRegister(raw.Registers, RegR4)
	if err != nil {
		return nil, err
	}
	bufferLength, err := intRegister(raw.Registers, RegR5)
	if err != nil {
		return nil, err
	}
	minDatapoints, err := intRegister(raw.Registers, RegR6)
	if err != nil {
		return nil, err
	}
	maxDeviation, err := intRegister(raw.Registers, RegR7)
	if err != nil {
		return nil, err
	}
	reward, err := longRegister(raw.Registers, RegR8)
	if err != nil {
		return nil, err
	}
	if epochLength < 0 || bufferLength < 0 || reward < 0 {
		return nil, fmt.Errorf("%w: negative refresh parameter", ErrMalformed)
	}

	params.EpochLength = uint32(epochLength)
	params.BufferLength = uint32(bufferLength)
	params.MinDatapoints = int(minDatapoints)
	params.MaxDeviationPercent = int64(maxDeviation)
	params.RewardPerDatapoint = uint64(reward)
	if err := params.validate(); err != nil {
		return nil, err
	}

	return &Refresh{
		Raw:           raw,
		Params:        params,
		RewardToken:   treasury.ID,
		RewardBalance: treasury.Amount,
	}, nil
}

// DecodeDatapoint validates a candidate datapoint box. The oracle token is
// a per-participant singleton: quantity must be exactly 1.
func DecodeDatapoint(raw RawBox, oracleToken TokenID) (*Datapoint, error) {
	if !raw.CarriesSingleton(oracleToken) {
		return nil, fmt.Errorf("%w: %s does not carry an oracle token", ErrMalformed, raw.ID)
	}

	v, err := raw.Registers.Value(RegR4)
	if err != nil {
		return nil, err
	}
	point, err := v.GroupElement()
	if err != nil {
		return nil, fmt.Errorf("%w: oracle key register: %v", ErrMalformed, err)
	}
	pk, err := oraclepk.FromBytes(point)
	if err != nil {
		return nil, fmt.Errorf("%w: oracle key register: %v", ErrMalformed, err)
	}

	epoch, err := epochRegister(raw.Registers, RegR5)
	if err != nil {
		return nil, err
	}

	price, err := longRegister(raw.Registers, RegR6)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: non-positive datapoint price %d", ErrMalformed, price)
	}

	return &Datapoint{
		Raw:    raw,
		Oracle: pk,
		Epoch:  epoch,
		Price:  price,
	}, nil
}

// DecodeOracle validates a participation box. Unlike DecodeDatapoint it
// accepts the fresh shape without a commitment; a box with only one of the
// two commitment registers is malformed.
func DecodeOracle(raw RawBox, oracleToken TokenID) (*Oracle, error) {
	if !raw.CarriesSingleton(oracleToken) {
		return nil, fmt.Errorf("%w: %s does not carry an oracle token", ErrMalformed, raw.ID)
	}

	v, err := raw.Registers.Value(RegR4)
	if err != nil {
		return nil, err
	}
	point, err := v.GroupElement()
	if err != nil {
		return nil, fmt.Errorf("%w: oracle key register: %v", ErrMalformed, err)
	}
	pk, err := oraclepk.FromBytes(point)
	if err != nil {
		return nil, fmt.Errorf("%w: oracle key register: %v", ErrMalformed, err)
	}

	o := &Oracle{
		Raw: raw,
		PK:  pk,
	}

	_, hasEpoch := raw.Registers[RegR5]
	_, hasPrice := raw.Registers[RegR6]
	if hasEpoch != hasPrice {
		return nil, fmt.Errorf("%w: %s carries half a commitment", ErrMalformed, raw.ID)
	}
	if !hasEpoch {
		return o, nil
	}

	epoch, err := epochRegister(raw.Registers, RegR5)
	if err != nil {
		return nil, err
	}
	price, err := longRegister(raw.Registers, RegR6)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: non-positive datapoint price %d", ErrMalformed, price)
	}

	o.Committed = true
	o.Epoch = epoch
	o.Price = price
	return o, nil
}

func longRegister(regs Registers, name string) (int64, error) {
	v, err := regs.Value(name)
	if err != nil {
		return 0, err
	}
	l, err := v.Long()
	if err != nil {
		return 0, fmt.Errorf("%w: register %s holds %s, want long", ErrMalformed, name, v.Type)
	}
	return l, nil
}

func intRegister(regs Registers, name string) (int32, error) {
	v, err := regs.Value(name)
	if err != nil {
		return 0, err
	}
	i, err := v.Int()
	if err != nil {
		return 0, fmt.Errorf("%w: register %s holds %s, want int", ErrMalformed, name, v.Type)
	}
	return i, nil
}

func epochRegister(regs Registers, name string) (idx.Epoch, error) {
	i, err := intRegister(regs, name)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("%w: negative epoch counter %d", ErrMalformed, i)
	}
	return idx.Epoch(i), nil
}
