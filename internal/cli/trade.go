package cli

import (
	"errors"
	"fmt"

	"player-trade/internal/trade"

	"github.com/spf13/cobra"
)

func newTradeCmd(a *app) *cobra.Command {
	var req trade.Request

	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Submit a trade between two players",
		Long: `Submit a trade: the buyer pays --coins to the seller and receives --goods.

The command exits non-zero when the trade is rejected or fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client.SubmitTrade(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := newOutput(cmd.OutOrStdout(), a.output)
			if out.json {
				out.JSON(res)
			}
			switch res.Outcome {
			case trade.OutcomeOK:
				if !out.json {
					out.Message(fmt.Sprintf("Trade complete: %s", req))
				}
				return nil
			case trade.OutcomeRejected:
				return fmt.Errorf("trade rejected: %s", res.Message)
			default:
				return errors.New(res.Message)
			}
		},
	}

	cmd.Flags().UintVar(&req.BuyerID, "buyer", 0, "Buyer player id (required)")
	cmd.Flags().UintVar(&req.SellerID, "seller", 0, "Seller player id (required)")
	cmd.Flags().Int64Var(&req.GoodsQuantity, "goods", 0, "Goods the buyer receives (required)")
	cmd.Flags().Int64Var(&req.CoinPrice, "coins", 0, "Coins the buyer pays (required)")
	for _, name := range []string{"buyer", "seller", "goods", "coins"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newTradesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Trade ledger commands",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent trades, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			trades, err := a.client.ListTrades(cmd.Context(), limit)
			if err != nil {
				return err
			}
			newOutput(cmd.OutOrStdout(), a.output).Trades(trades)
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Maximum number of trades")
	cmd.AddCommand(list)

	return cmd
}
