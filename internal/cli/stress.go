package cli

import (
	"fmt"
	"sync/atomic"

	"player-trade/internal/trade"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// stressReport summarizes a stress run.
type stressReport struct {
	Committed   int64 `json:"committed"`
	Rejected    int64 `json:"rejected"`
	Failed      int64 `json:"failed"`
	CoinsBefore int64 `json:"coins_before"`
	CoinsAfter  int64 `json:"coins_after"`
	GoodsBefore int64 `json:"goods_before"`
	GoodsAfter  int64 `json:"goods_after"`
}

func (r stressReport) conserved() bool {
	return r.CoinsBefore == r.CoinsAfter && r.GoodsBefore == r.GoodsAfter
}

func newStressCmd(a *app) *cobra.Command {
	var (
		playerA, playerB uint
		n, concurrency   int
		goods, coins     int64
	)

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run concurrent opposite-role trades between two players",
		Long: `stress submits --n trades between players --a and --b, alternating who buys,
with up to --concurrency in flight. It then checks that the pair's combined
coins and goods are unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if playerA == playerB {
				return fmt.Errorf("--a and --b must be different players")
			}
			if concurrency < 1 {
				concurrency = 1
			}

			before, err := pairTotals(cmd, a, playerA, playerB)
			if err != nil {
				return err
			}

			var report stressReport
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(concurrency)
			for i := 0; i < n; i++ {
				req := trade.Request{BuyerID: playerA, SellerID: playerB, GoodsQuantity: goods, CoinPrice: coins}
				if i%2 == 1 {
					req.BuyerID, req.SellerID = playerB, playerA
				}
				g.Go(func() error {
					res, err := a.client.SubmitTrade(gctx, req)
					if err != nil {
						return err
					}
					switch res.Outcome {
					case trade.OutcomeOK:
						atomic.AddInt64(&report.Committed, 1)
					case trade.OutcomeRejected:
						atomic.AddInt64(&report.Rejected, 1)
					default:
						atomic.AddInt64(&report.Failed, 1)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			after, err := pairTotals(cmd, a, playerA, playerB)
			if err != nil {
				return err
			}
			report.CoinsBefore, report.GoodsBefore = before[0], before[1]
			report.CoinsAfter, report.GoodsAfter = after[0], after[1]

			out := newOutput(cmd.OutOrStdout(), a.output)
			if out.json {
				out.JSON(report)
			} else {
				out.Message(fmt.Sprintf("committed=%d rejected=%d failed=%d", report.Committed, report.Rejected, report.Failed))
				out.Message(fmt.Sprintf("coins %d -> %d, goods %d -> %d",
					report.CoinsBefore, report.CoinsAfter, report.GoodsBefore, report.GoodsAfter))
			}
			if !report.conserved() {
				return fmt.Errorf("balances not conserved")
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&playerA, "a", 0, "First player id (required)")
	cmd.Flags().UintVar(&playerB, "b", 0, "Second player id (required)")
	cmd.Flags().IntVar(&n, "n", 100, "Number of trades")
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "Trades in flight at once")
	cmd.Flags().Int64Var(&goods, "goods", 1, "Goods per trade")
	cmd.Flags().Int64Var(&coins, "coins", 1, "Coins per trade")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")

	return cmd
}

// pairTotals returns the combined coins and goods of two players.
func pairTotals(cmd *cobra.Command, a *app, ids ...uint) ([2]int64, error) {
	var totals [2]int64
	for _, id := range ids {
		p, err := a.client.GetPlayer(cmd.Context(), id)
		if err != nil {
			return totals, fmt.Errorf("player %d: %w", id, err)
		}
		totals[0] += p.Coins
		totals[1] += p.Goods
	}
	return totals, nil
}
