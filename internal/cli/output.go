package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"player-trade/internal/models"
)

// output formats command results as text tables or indented JSON.
type output struct {
	w    io.Writer
	json bool
}

func newOutput(w io.Writer, format string) *output {
	return &output{w: w, json: format == "json"}
}

func (o *output) JSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *output) Message(msg string) {
	if o.json {
		o.JSON(map[string]string{"message": msg})
		return
	}
	fmt.Fprintln(o.w, msg)
}

func (o *output) Players(players []models.Player) {
	if o.json {
		o.JSON(players)
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOINS\tGOODS")
	for _, p := range players {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", p.ID, p.Name, p.Coins, p.Goods)
	}
	_ = tw.Flush()
}

func (o *output) Trades(trades []models.Trade) {
	if o.json {
		o.JSON(trades)
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBUYER\tSELLER\tGOODS\tCOINS\tAT")
	for _, t := range trades {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%s\n",
			t.ID, t.BuyerID, t.SellerID, t.Goods, t.Coins, t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	_ = tw.Flush()
}
