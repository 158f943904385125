package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"binbook/internal/dex"
	"binbook/internal/model"
	"binbook/internal/storage"
)

// ChainSource is the slice of the chain client the shadow runner uses.
type ChainSource interface {
	ChainID(ctx context.Context) (uint64, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topics []common.Hash) ([]types.Log, error)
}

// ErrorSink receives the logs the decoder could not translate.
type ErrorSink interface {
	PutDecodeErrors(errs []model.DecodeError) error
}

// ShadowConfig drives one journal scan.
type ShadowConfig struct {
	FromBlock uint64
	// ToBlock 0 means scan up to the current head.
	ToBlock     uint64
	Pairs       []common.Address
	BatchSize   uint64
	Checkpoint  string
	Resume      bool
	MaxAttempts int
	RetryDelay  time.Duration
}

// ShadowRunner scans pair logs from the chain, folds them into journal
// operations and appends them in block order.
type ShadowRunner struct {
	cfg     ShadowConfig
	chain   ChainSource
	decoder *dex.PairDecoder
	journal storage.Journal
	errs    ErrorSink
	logger  *zap.Logger
	marks   *CheckpointStore
	seen    map[string]struct{}
}

// NewShadowRunner wires a runner. The error sink may be nil, in which case
// undecodable logs are only logged.
func NewShadowRunner(
	cfg ShadowConfig,
	chain ChainSource,
	decoder *dex.PairDecoder,
	journal storage.Journal,
	errs ErrorSink,
	logger *zap.Logger,
) (*ShadowRunner, error) {
	if chain == nil {
		return nil, errors.New("chain source is required")
	}
	if decoder == nil {
		return nil, errors.New("decoder is required")
	}
	if journal == nil {
		return nil, errors.New("journal is required")
	}
	if len(cfg.Pairs) == 0 {
		return nil, errors.New("at least one pair address is required")
	}
	if cfg.BatchSize == 0 {
		return nil, errors.New("batch size must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShadowRunner{
		cfg:     cfg,
		chain:   chain,
		decoder: decoder,
		journal: journal,
		errs:    errs,
		logger:  logger,
		marks:   NewCheckpointStore(cfg.Checkpoint, StageShadow, cfg.Resume),
		seen:    make(map[string]struct{}),
	}, nil
}

// Run scans the configured block window batch by batch. Each batch is
// decoded, merged, journaled and checkpointed before the next one starts,
// so an interrupted scan resumes at the last completed batch.
func (r *ShadowRunner) Run(ctx context.Context) error {
	chainID, err := r.chain.ChainID(ctx)
	if err != nil {
		return err
	}

	to := r.cfg.ToBlock
	if to == 0 {
		if to, err = r.chain.LatestBlockNumber(ctx); err != nil {
			return fmt.Errorf("latest block: %w", err)
		}
	}
	from := r.cfg.FromBlock
	if cp, ok, err := r.marks.Load(); err != nil {
		return err
	} else if ok && cp.Cursor >= from {
		from = cp.Cursor + 1
		r.logger.Info("resuming from checkpoint", zap.Uint64("from_block", from))
	}
	if from > to {
		r.logger.Info("journal is up to date",
			zap.Uint64("from_block", from),
			zap.Uint64("to_block", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	topics := r.decoder.Topics()

	for _, br := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var logs []types.Log
		err := withRetry(ctx, r.cfg.MaxAttempts, r.cfg.RetryDelay, func() error {
			var ferr error
			logs, ferr = r.chain.FilterLogs(ctx, br.From, br.To, r.cfg.Pairs, topics)
			return ferr
		})
		if err != nil {
			return fmt.Errorf("filter logs %d-%d: %w", br.From, br.To, err)
		}

		ops, decodeErrs, err := r.decodeBatch(ctx, chainID, logs)
		if err != nil {
			return err
		}
		if len(decodeErrs) > 0 && r.errs != nil {
			if err := r.errs.PutDecodeErrors(decodeErrs); err != nil {
				return fmt.Errorf("record decode errors: %w", err)
			}
		}
		ops = MergeOperations(ops, r.logger)
		if len(ops) > 0 {
			if err := r.journal.AppendOperations(ops); err != nil {
				return fmt.Errorf("append journal: %w", err)
			}
		}
		if err := r.marks.Save(br.To); err != nil {
			return err
		}
		r.logger.Info("batch journaled",
			zap.Uint64("from_block", br.From),
			zap.Uint64("to_block", br.To),
			zap.Int("logs", len(logs)),
			zap.Int("operations", len(ops)),
			zap.Int("decode_errors", len(decodeErrs)))
	}
	return nil
}

func (r *ShadowRunner) decodeBatch(ctx context.Context, chainID uint64, logs []types.Log) ([]model.Operation, []model.DecodeError, error) {
	ops := make([]model.Operation, 0, len(logs))
	var decodeErrs []model.DecodeError

	for _, lg := range logs {
		if lg.Removed {
			r.logger.Warn("skipping removed log",
				zap.Uint64("block", lg.BlockNumber),
				zap.Uint("log_index", lg.Index))
			continue
		}
		key := fmt.Sprintf("%d:%s:%d", lg.BlockNumber, lg.TxHash.Hex(), lg.Index)
		if _, dup := r.seen[key]; dup {
			continue
		}
		r.seen[key] = struct{}{}

		var ts uint64
		err := withRetry(ctx, r.cfg.MaxAttempts, r.cfg.RetryDelay, func() error {
			var terr error
			ts, terr = r.chain.BlockTimestamp(ctx, lg.BlockNumber)
			return terr
		})
		if err != nil {
			return nil, nil, fmt.Errorf("timestamp for block %d: %w", lg.BlockNumber, err)
		}

		op, err := r.decoder.Decode(lg, ts)
		if err != nil {
			decodeErrs = append(decodeErrs, decodeError(chainID, lg, err))
			r.logger.Warn("undecodable log",
				zap.Uint64("block", lg.BlockNumber),
				zap.Uint("log_index", lg.Index),
				zap.Error(err))
			continue
		}
		op.ChainID = chainID
		ops = append(ops, op)
	}
	return ops, decodeErrs, nil
}

func decodeError(chainID uint64, lg types.Log, err error) model.DecodeError {
	de := model.DecodeError{
		ChainID:     chainID,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash.Hex(),
		LogIndex:    uint64(lg.Index),
		Address:     lg.Address.Hex(),
		Error:       err.Error(),
	}
	if len(lg.Topics) > 0 {
		de.Topic0 = lg.Topics[0].Hex()
	}
	if len(lg.Data) > 0 {
		de.Data = hexutil.Encode(lg.Data)
	}
	return de
}
