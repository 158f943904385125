package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"binbook/internal/book"
	"binbook/internal/model"
)

const maxBinID = (1 << 24) - 1

// PairDecoder turns raw bin-pair logs into journal operations. It never
// touches the chain; metadata lives elsewhere.
type PairDecoder struct {
	pairABI     abi.ABI
	topicToName map[common.Hash]string
}

func NewPairDecoder() (*PairDecoder, error) {
	parsed, err := PairABI()
	if err != nil {
		return nil, err
	}

	names := []string{
		"Swap",
		"DepositedToBins",
		"WithdrawnFromBins",
		"CompositionFees",
		"CollectedProtocolFees",
		"StaticFeeParametersSet",
		"OracleLengthIncreased",
		"ForcedDecay",
		"TransferBatch",
	}
	topicToName := make(map[common.Hash]string, len(names))
	for _, name := range names {
		topicToName[parsed.Events[name].ID] = name
	}

	return &PairDecoder{pairABI: parsed, topicToName: topicToName}, nil
}

// Topics returns every topic0 the decoder understands, for log filters.
func (d *PairDecoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.topicToName))
	for topic := range d.topicToName {
		out = append(out, topic)
	}
	return out
}

// CanDecode checks if the topic0 is supported.
func (d *PairDecoder) CanDecode(topic0 common.Hash) bool {
	_, ok := d.topicToName[topic0]
	return ok
}

// Decode converts one log into an Operation. The block timestamp comes from
// the caller; ChainID is stamped by the pipeline.
func (d *PairDecoder) Decode(log types.Log, timestamp uint64) (model.Operation, error) {
	if len(log.Topics) == 0 {
		return model.Operation{}, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[log.Topics[0]]
	if !ok {
		return model.Operation{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	switch name {
	case "Swap":
		return d.decodeSwap(log, timestamp)
	case "DepositedToBins":
		return d.decodeBinAmounts(log, timestamp, model.OpDeposit)
	case "WithdrawnFromBins":
		return d.decodeBinAmounts(log, timestamp, model.OpWithdraw)
	case "CompositionFees":
		return d.decodeCompositionFees(log, timestamp)
	case "CollectedProtocolFees":
		return d.decodeCollectedProtocolFees(log, timestamp)
	case "StaticFeeParametersSet":
		return d.decodeStaticFeeParameters(log, timestamp)
	case "OracleLengthIncreased":
		return d.decodeOracleLengthIncreased(log, timestamp)
	case "ForcedDecay":
		return d.decodeForcedDecay(log, timestamp)
	case "TransferBatch":
		return d.decodeTransferBatch(log, timestamp)
	default:
		return model.Operation{}, fmt.Errorf("unsupported event name: %s", name)
	}
}

func (d *PairDecoder) decodeSwap(log types.Log, timestamp uint64) (model.Operation, error) {
	event := d.pairABI.Events["Swap"]

	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.Operation{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.Operation{}, err
	}
	if len(values) != 6 {
		return model.Operation{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	id, err := binIDFromValue(values[0])
	if err != nil {
		return model.Operation{}, fmt.Errorf("swap id: %w", err)
	}
	amountsIn, err := asAmounts(values[1])
	if err != nil {
		return model.Operation{}, fmt.Errorf("amounts in: %w", err)
	}
	amountsOut, err := asAmounts(values[2])
	if err != nil {
		return model.Operation{}, fmt.Errorf("amounts out: %w", err)
	}
	totalFees, err := asAmounts(values[4])
	if err != nil {
		return model.Operation{}, fmt.Errorf("total fees: %w", err)
	}
	protocolFees, err := asAmounts(values[5])
	if err != nil {
		return model.Operation{}, fmt.Errorf("protocol fees: %w", err)
	}

	if amountsIn.X.IsZero() && amountsIn.Y.IsZero() {
		return model.Operation{}, fmt.Errorf("swap with empty in amounts")
	}
	swapForY := !amountsIn.X.IsZero()
	in := &amountsIn.X
	if !swapForY {
		in = &amountsIn.Y
	}

	op := baseOperation(log, model.OpSwap, timestamp)
	op.Sender = indexed.Sender.Hex()
	op.To = indexed.To.Hex()
	op.SwapForY = swapForY
	op.AmountIn = in.Dec()
	op.Bins = []model.BinAmounts{{
		ID:           id,
		AmountX:      decOrEmpty(new(uint256.Int).Add(&amountsIn.X, &amountsOut.X)),
		AmountY:      decOrEmpty(new(uint256.Int).Add(&amountsIn.Y, &amountsOut.Y)),
		FeeX:         decOrEmpty(&totalFees.X),
		FeeY:         decOrEmpty(&totalFees.Y),
		ProtocolFeeX: decOrEmpty(&protocolFees.X),
		ProtocolFeeY: decOrEmpty(&protocolFees.Y),
	}}
	return op, nil
}

func (d *PairDecoder) decodeBinAmounts(log types.Log, timestamp uint64, kind string) (model.Operation, error) {
	name := "DepositedToBins"
	if kind == model.OpWithdraw {
		name = "WithdrawnFromBins"
	}
	event := d.pairABI.Events[name]

	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.Operation{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.Operation{}, err
	}
	if len(values) != 2 {
		return model.Operation{}, fmt.Errorf("unexpected %s values: %d", name, len(values))
	}
	ids, err := asBigSlice(values[0])
	if err != nil {
		return model.Operation{}, fmt.Errorf("ids: %w", err)
	}
	words, err := asBytes32Slice(values[1])
	if err != nil {
		return model.Operation{}, fmt.Errorf("amounts: %w", err)
	}
	if len(ids) != len(words) {
		return model.Operation{}, fmt.Errorf("ids/amounts length mismatch: %d vs %d", len(ids), len(words))
	}

	totalX := new(uint256.Int)
	totalY := new(uint256.Int)
	bins := make([]model.BinAmounts, 0, len(ids))
	for i := range ids {
		id, err := binIDFromValue(ids[i])
		if err != nil {
			return model.Operation{}, fmt.Errorf("bin %d: %w", i, err)
		}
		amounts := book.UnpackAmounts(words[i])
		totalX.Add(totalX, &amounts.X)
		totalY.Add(totalY, &amounts.Y)
		bins = append(bins, model.BinAmounts{
			ID:      id,
			AmountX: decOrEmpty(&amounts.X),
			AmountY: decOrEmpty(&amounts.Y),
		})
	}

	op := baseOperation(log, kind, timestamp)
	op.Sender = indexed.Sender.Hex()
	op.To = indexed.To.Hex()
	op.AmountX = decOrEmpty(totalX)
	op.AmountY = decOrEmpty(totalY)
	op.Bins = bins
	return op, nil
}

func (d *PairDecoder) decodeCompositionFees(log types.Log, timestamp uint64) (model.Operation, error) {
	event := d.pairABI.Events["CompositionFees"]

	var indexed struct {
		Sender common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.Operation{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.Operation{}, err
	}
	if len(values) != 3 {
		return model.Operation{}, fmt.Errorf("unexpected composition fee values: %d", len(values))
	}
	id, err := binIDFromValue(values[0])
	if err != nil {
		return model.Operation{}, fmt.Errorf("composition fee id: %w", err)
	}
	totalFees, err := asAmounts(values[1])
	if err != nil {
		return model.Operation{}, fmt.Errorf("total fees: %w", err)
	}
	protocolFees, err := asAmounts(values[2])
	if err != nil {
		return model.Operation{}, fmt.Errorf("protocol fees: %w", err)
	}

	op := baseOperation(log, model.OpCompositionFees, timestamp)
	op.Sender = indexed.Sender.Hex()
	op.Bins = []model.BinAmounts{{
		ID:           id,
		FeeX:         decOrEmpty(&totalFees.X),
		FeeY:         decOrEmpty(&totalFees.Y),
		ProtocolFeeX: decOrEmpty(&protocolFees.X),
		ProtocolFeeY: decOrEmpty(&protocolFees.Y),
	}}
	return op, nil
}

func (d *PairDecoder) decodeCollectedProtocolFees(log types.Log, timestamp uint64) (model.Operation, error) {
	event := d.pairABI.Events["CollectedProtocolFees"]

	var indexed struct {
		FeeRecipient common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.Operation{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.Operation{}, err
	}
	if len(values) != 1 {
		return model.Operation{}, fmt.Errorf("unexpected collect values: %d", len(values))
	}
	fees, err := asAmounts(values[0])
	if err != nil {
		return model.Operation{}, fmt.Errorf("protocol fees: %w", err)
	}

	op := baseOperation(log, model.OpCollectProtocolFees, timestamp)
	op.To = indexed.FeeRecipient.Hex()
	op.AmountX = decOrEmpty(&fees.X)
	op.AmountY = decOrEmpty(&fees.Y)
	return op, nil
}

func (d *PairDecoder) decodeStaticFeeParameters(log types.Log, timestamp uint64) (model.Operation, error) {
	event := d.pairABI.Events["StaticFeeParametersSet"]

	var indexed struct {
		Sender common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.Operation{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.Operation{}, err
	}
	if len(values) != 7 {
		return model.Operation{}, fmt.Errorf("unexpected static fee values: %d", len(values))
	}

	cfg := model.StaticFeeConfig{}
	if cfg.BaseFactor, err = asUint16(values[0]); err != nil {
		return model.Operation{}, fmt.Errorf("base factor: %w", err)
	}
	if cfg.FilterPeriod, err = asUint16(values[1]); err != nil {
		return model.Operation{}, fmt.Errorf("filter period: %w", err)
	}
	if cfg.DecayPeriod, err = asUint16(values[2]); err != nil {
		return model.Operation{}, fmt.Errorf("decay period: %w", err)
	}
	if cfg.ReductionFactor, err = asUint16(values[3]); err != nil {
		return model.Operation{}, fmt.Errorf("reduction factor: %w", err)
	}
	vfc, err := binIDFromValue(values[4])
	if err != nil {
		return model.Operation{}, fmt.Errorf("variable fee control: %w", err)
	}
	cfg.VariableFeeControl = vfc
	if cfg.ProtocolShare, err = asUint16(values[5]); err != nil {
		return model.Operation{}, fmt.Errorf("protocol share: %w", err)
	}
	mva, err := binIDFromValue(values[6])
	if err != nil {
		return model.Operation{}, fmt.Errorf("max volatility accumulator: %w", err)
	}
	cfg.MaxVolatilityAccumulator = mva

	op := baseOperation(log, model.OpSetStaticFee, timestamp)
	op.Sender = indexed.Sender.Hex()
	op.Static = &cfg
	return op, nil
}

func (d *PairDecoder) decodeOracleLengthIncreased(log types.Log, timestamp uint64) (model.Operation, error) {
	event := d.pairABI.Events["OracleLengthIncreased"]

	var indexed struct {
		Sender common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.Operation{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.Operation{}, err
	}
	if len(values) != 1 {
		return model.Operation{}, fmt.Errorf("unexpected oracle length values: %d", len(values))
	}
	length, err := asUint16(values[0])
	if err != nil {
		return model.Operation{}, fmt.Errorf("oracle length: %w", err)
	}

	op := baseOperation(log, model.OpIncreaseOracleLength, timestamp)
	op.Sender = indexed.Sender.Hex()
	op.OracleLength = length
	return op, nil
}

func (d *PairDecoder) decodeForcedDecay(log types.Log, timestamp uint64) (model.Operation, error) {
	event := d.pairABI.Events["ForcedDecay"]

	var indexed struct {
		Sender common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.Operation{}, err
	}
	// idReference and volatilityReference are recomputed on replay.
	if _, err := unpackNonIndexed(event, log.Data); err != nil {
		return model.Operation{}, err
	}

	op := baseOperation(log, model.OpForceDecay, timestamp)
	op.Sender = indexed.Sender.Hex()
	return op, nil
}

func (d *PairDecoder) decodeTransferBatch(log types.Log, timestamp uint64) (model.Operation, error) {
	event := d.pairABI.Events["TransferBatch"]

	var indexed struct {
		Sender common.Address
		From   common.Address
		To     common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.Operation{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.Operation{}, err
	}
	if len(values) != 2 {
		return model.Operation{}, fmt.Errorf("unexpected transfer values: %d", len(values))
	}
	ids, err := asBigSlice(values[0])
	if err != nil {
		return model.Operation{}, fmt.Errorf("ids: %w", err)
	}
	shares, err := asBigSlice(values[1])
	if err != nil {
		return model.Operation{}, fmt.Errorf("amounts: %w", err)
	}
	if len(ids) != len(shares) {
		return model.Operation{}, fmt.Errorf("ids/amounts length mismatch: %d vs %d", len(ids), len(shares))
	}

	bins := make([]model.BinAmounts, 0, len(ids))
	for i := range ids {
		id, err := binIDFromValue(ids[i])
		if err != nil {
			return model.Operation{}, fmt.Errorf("bin %d: %w", i, err)
		}
		bins = append(bins, model.BinAmounts{ID: id, Shares: shares[i].String()})
	}

	op := baseOperation(log, model.OpTransferBatch, timestamp)
	op.Sender = indexed.Sender.Hex()
	op.From = indexed.From.Hex()
	op.To = indexed.To.Hex()
	op.Bins = bins
	return op, nil
}

func baseOperation(log types.Log, kind string, timestamp uint64) model.Operation {
	return model.Operation{
		Kind:        kind,
		Pair:        strings.ToLower(log.Address.Hex()),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Timestamp:   timestamp,
		Raw: &model.RawLogRef{
			Topic0: log.Topics[0].Hex(),
			Data:   hexutil.Encode(log.Data),
		},
	}
}

func parseIndexed(out interface{}, event abi.Event, topics []common.Hash) error {
	args := indexedArguments(event.Inputs)
	if len(topics) != len(args)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(args)+1, len(topics))
	}
	if err := abi.ParseTopics(out, args, topics[1:]); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, data []byte) ([]interface{}, error) {
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func binIDFromValue(value interface{}) (uint32, error) {
	b, err := asBigInt(value)
	if err != nil {
		return 0, err
	}
	if b.Sign() < 0 || !b.IsUint64() || b.Uint64() > maxBinID {
		return 0, fmt.Errorf("bin id out of range: %s", b)
	}
	return uint32(b.Uint64()), nil
}

func asAmounts(value interface{}) (book.Amounts, error) {
	word, ok := value.([32]byte)
	if !ok {
		return book.Amounts{}, fmt.Errorf("unsupported bytes32 type %T", value)
	}
	return book.UnpackAmounts(word), nil
}

func asBigSlice(value interface{}) ([]*big.Int, error) {
	s, ok := value.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported slice type %T", value)
	}
	return s, nil
}

func asBytes32Slice(value interface{}) ([][32]byte, error) {
	s, ok := value.([][32]byte)
	if !ok {
		return nil, fmt.Errorf("unsupported slice type %T", value)
	}
	return s, nil
}

func asUint16(value interface{}) (uint16, error) {
	switch v := value.(type) {
	case uint16:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 1<<16-1 {
			return 0, fmt.Errorf("uint16 out of range: %s", v)
		}
		return uint16(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint16 type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func decOrEmpty(v *uint256.Int) string {
	if v.IsZero() {
		return ""
	}
	return v.Dec()
}
