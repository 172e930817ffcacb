package cli

import (
	"fmt"

	"player-trade/internal/client"

	"github.com/spf13/cobra"
)

func newPlayersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Player management commands",
	}

	cmd.AddCommand(newPlayersListCmd(a))
	cmd.AddCommand(newPlayersCreateCmd(a))
	cmd.AddCommand(newPlayersBulkCreateCmd(a))
	cmd.AddCommand(newPlayersDeleteAllCmd(a))

	return cmd
}

func newPlayersListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all players",
		RunE: func(cmd *cobra.Command, args []string) error {
			players, err := a.client.ListPlayers(cmd.Context())
			if err != nil {
				return err
			}
			newOutput(cmd.OutOrStdout(), a.output).Players(players)
			return nil
		},
	}
}

func newPlayersCreateCmd(a *app) *cobra.Command {
	var (
		name         string
		coins, goods int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a player",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.CreatePlayerRequest{Name: name}
			// Unset balances take the server defaults.
			if cmd.Flags().Changed("coins") {
				req.Coins = &coins
			}
			if cmd.Flags().Changed("goods") {
				req.Goods = &goods
			}

			p, err := a.client.CreatePlayer(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := newOutput(cmd.OutOrStdout(), a.output)
			if out.json {
				out.JSON(p)
			} else {
				out.Message(fmt.Sprintf("Created %d: %s", p.ID, p))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Player name (required)")
	cmd.Flags().Int64Var(&coins, "coins", 0, "Starting coins (default from server)")
	cmd.Flags().Int64Var(&goods, "goods", 0, "Starting goods (default from server)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newPlayersBulkCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-create",
		Short: "Create the default batch of players",
		RunE: func(cmd *cobra.Command, args []string) error {
			players, err := a.client.BulkCreatePlayers(cmd.Context())
			if err != nil {
				return err
			}
			newOutput(cmd.OutOrStdout(), a.output).Players(players)
			return nil
		},
	}
}

func newPlayersDeleteAllCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all players without --yes")
			}
			n, err := a.client.DeleteAllPlayers(cmd.Context())
			if err != nil {
				return err
			}
			newOutput(cmd.OutOrStdout(), a.output).Message(fmt.Sprintf("Deleted %d players", n))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}
