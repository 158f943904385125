package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"binbook/internal/book"
	"binbook/internal/config"
	"binbook/internal/engine"
	"binbook/internal/model"
	"binbook/internal/pool"
	"binbook/internal/storage/postgres"
)

type quoteView struct {
	Pair        string         `json:"pair"`
	BlockNumber uint64         `json:"block_number"`
	Timestamp   uint64         `json:"timestamp"`
	ActiveID    uint32         `json:"active_id"`
	Price       string         `json:"price"`
	ReserveX    string         `json:"reserve_x"`
	ReserveY    string         `json:"reserve_y"`
	Bins        []binView      `json:"bins,omitempty"`
	Swap        *swapQuoteView `json:"swap,omitempty"`
	TWAP        *twapView      `json:"twap,omitempty"`
}

type binView struct {
	ID       uint32 `json:"id"`
	Price    string `json:"price"`
	ReserveX string `json:"reserve_x"`
	ReserveY string `json:"reserve_y"`
}

type swapQuoteView struct {
	SwapForY      bool   `json:"swap_for_y"`
	AmountIn      string `json:"amount_in"`
	AmountInLeft  string `json:"amount_in_left,omitempty"`
	AmountOut     string `json:"amount_out"`
	AmountOutLeft string `json:"amount_out_left,omitempty"`
	Fee           string `json:"fee"`
}

type twapView struct {
	SecondsAgo uint64 `json:"seconds_ago"`
	AverageID  uint32 `json:"average_id"`
	Price      string `json:"price"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Pair == "" {
		return fmt.Errorf("pair is required")
	}
	if !common.IsHexAddress(cfg.Pair) {
		return fmt.Errorf("invalid pair address: %s", cfg.Pair)
	}
	if cfg.AmountIn != "" && cfg.AmountOut != "" {
		return fmt.Errorf("amount-in and amount-out are mutually exclusive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pair := strings.ToLower(common.HexToAddress(cfg.Pair).Hex())
	snap, err := loadQuoteSnapshot(ctx, cfg, pair)
	if err != nil {
		return err
	}

	eng := engine.New(logger)
	pl, err := eng.AddPoolFromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("load pool from snapshot: %w", err)
	}

	// Quotes evaluate fee decay against a clock. Default to the snapshot
	// time so a stored pool quotes exactly as it stood.
	now := snap.Timestamp
	if cfg.At != "" {
		if now, err = config.ParseTimestamp(cfg.At); err != nil {
			return fmt.Errorf("parse at: %w", err)
		}
	}

	view, err := buildQuoteView(pl, snap, cfg, now, logger)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func loadQuoteSnapshot(ctx context.Context, cfg config.QuoteConfig, pair string) (model.PoolSnapshot, error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return model.PoolSnapshot{}, fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		snap, ok, err := store.LoadSnapshot(ctx, cfg.ChainID, pair)
		if err != nil {
			return model.PoolSnapshot{}, err
		}
		if !ok {
			return model.PoolSnapshot{}, fmt.Errorf("no snapshot for pair %s", pair)
		}
		return snap, nil
	}

	snaps, err := loadSnapshotsFile(cfg.Snapshots)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	snap, ok := snaps[pair]
	if !ok {
		return model.PoolSnapshot{}, fmt.Errorf("no snapshot for pair %s in %s", pair, cfg.Snapshots)
	}
	return snap, nil
}

func buildQuoteView(pl *pool.Pool, snap model.PoolSnapshot, cfg config.QuoteConfig, now uint64, logger *zap.Logger) (quoteView, error) {
	activeID := pl.GetActiveID()
	price, err := priceDecimal(activeID, pl.BinStep())
	if err != nil {
		return quoteView{}, err
	}
	reserves := pl.GetReserves()

	view := quoteView{
		Pair:        pl.Pair(),
		BlockNumber: snap.BlockNumber,
		Timestamp:   snap.Timestamp,
		ActiveID:    activeID,
		Price:       price,
		ReserveX:    reserves.X.Dec(),
		ReserveY:    reserves.Y.Dec(),
	}

	if cfg.Bins > 0 {
		if view.Bins, err = binsAround(pl, activeID, cfg.Bins); err != nil {
			return quoteView{}, err
		}
	}

	switch {
	case cfg.AmountIn != "":
		var amount uint256.Int
		if err := amount.SetFromDecimal(cfg.AmountIn); err != nil {
			return quoteView{}, fmt.Errorf("parse amount-in: %w", err)
		}
		q, err := pl.QuoteSwapOut(&amount, cfg.SwapForY, now)
		if err != nil {
			return quoteView{}, fmt.Errorf("quote swap: %w", err)
		}
		view.Swap = swapView(q, cfg.SwapForY)
	case cfg.AmountOut != "":
		var amount uint256.Int
		if err := amount.SetFromDecimal(cfg.AmountOut); err != nil {
			return quoteView{}, fmt.Errorf("parse amount-out: %w", err)
		}
		q, err := pl.QuoteSwapIn(&amount, cfg.SwapForY, now)
		if err != nil {
			return quoteView{}, fmt.Errorf("quote swap: %w", err)
		}
		view.Swap = swapView(q, cfg.SwapForY)
	}

	if cfg.TwapAgo > 0 {
		twap, err := twapAt(pl, cfg.TwapAgo, now)
		if err != nil {
			logger.Warn("twap unavailable", zap.Error(err))
		} else {
			view.TWAP = twap
		}
	}

	return view, nil
}

func binsAround(pl *pool.Pool, activeID uint32, radius int) ([]binView, error) {
	lo := int64(activeID) - int64(radius)
	if lo < 0 {
		lo = 0
	}
	hi := int64(activeID) + int64(radius)

	var bins []binView
	for id := lo; id <= hi; id++ {
		res := pl.GetBinReserves(uint32(id))
		if res.IsZero() {
			continue
		}
		price, err := priceDecimal(uint32(id), pl.BinStep())
		if err != nil {
			return nil, err
		}
		bins = append(bins, binView{
			ID:       uint32(id),
			Price:    price,
			ReserveX: res.X.Dec(),
			ReserveY: res.Y.Dec(),
		})
	}
	return bins, nil
}

func swapView(q pool.Quote, swapForY bool) *swapQuoteView {
	return &swapQuoteView{
		SwapForY:      swapForY,
		AmountIn:      q.AmountIn.Dec(),
		AmountInLeft:  decOrEmpty(q.AmountInLeft),
		AmountOut:     q.AmountOut.Dec(),
		AmountOutLeft: decOrEmpty(q.AmountOutLeft),
		Fee:           q.Fee.Dec(),
	}
}

// twapAt derives the time weighted average bin over the trailing window from
// two oracle samples, then prices that average bin.
func twapAt(pl *pool.Pool, secondsAgo, now uint64) (*twapView, error) {
	past, err := pl.GetOracleSampleAt(secondsAgo, now)
	if err != nil {
		return nil, err
	}
	current, err := pl.GetOracleSampleAt(0, now)
	if err != nil {
		return nil, err
	}
	if current.At <= past.At {
		return nil, fmt.Errorf("oracle window is empty")
	}

	avgID := uint32((current.CumulativeID - past.CumulativeID) / (current.At - past.At))
	price, err := priceDecimal(avgID, pl.BinStep())
	if err != nil {
		return nil, err
	}
	return &twapView{
		SecondsAgo: secondsAgo,
		AverageID:  avgID,
		Price:      price,
	}, nil
}

// priceDecimal renders the 128.128 bin price as a 1e18 scaled decimal string.
func priceDecimal(id uint32, binStep uint16) (string, error) {
	raw, err := book.PriceFromID(id, binStep)
	if err != nil {
		return "", err
	}
	scaled, err := book.Convert128x128PriceToDecimal(raw)
	if err != nil {
		return "", err
	}
	r := new(big.Rat).SetFrac(scaled.ToBig(), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	return r.FloatString(18), nil
}

func decOrEmpty(v *uint256.Int) string {
	if v == nil || v.IsZero() {
		return ""
	}
	return v.Dec()
}
