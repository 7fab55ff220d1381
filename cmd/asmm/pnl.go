package main

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"asmm-quoter/inventory"
)

func newPnLCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pnl",
		Short:   "Replay fills through the position tracker and report PnL",
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPnL(v, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.String("fills", "", "成交 CSV: delta,price[,RFC3339 时间]")
	f.String("mark", "", "按此价格计算未实现盈亏")
	return cmd
}

func runPnL(v *viper.Viper, out io.Writer) error {
	path := v.GetString("fills")
	if path == "" {
		return fmt.Errorf("fills: path required")
	}
	app, err := loadAppConfig(v.GetString("config"))
	if err != nil {
		return err
	}
	log, err := newLogger(v, app)
	if err != nil {
		return err
	}
	defer log.Close()

	rows, err := readRows(path)
	if err != nil {
		return err
	}
	fills, err := parseFills(rows)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	tracker := inventory.NewTracker()
	for i, f := range fills {
		ts := f.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		res, err := tracker.ApplyFill(f.Delta, f.Price, ts)
		if err != nil {
			return fmt.Errorf("fill %d: %w", i+1, err)
		}
		log.LogFill(map[string]interface{}{
			"delta":    f.Delta.String(),
			"price":    f.Price.String(),
			"position": res.Position.Quantity.String(),
			"realized": res.Realized.String(),
		})
	}

	if s := v.GetString("mark"); s != "" {
		mark, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("mark: %w", err)
		}
		if _, err := tracker.MarkToMarket(mark); err != nil {
			return err
		}
	}

	snap := tracker.Snapshot()
	total, err := snap.PnL.Total()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "fills        %d\n", snap.Stats.Fills)
	fmt.Fprintf(out, "position     %s\n", snap.Position.Quantity)
	fmt.Fprintf(out, "avg_entry    %s\n", snap.Position.AvgEntryPrice)
	fmt.Fprintf(out, "realized     %s\n", snap.PnL.Realized)
	fmt.Fprintf(out, "unrealized   %s\n", snap.PnL.Unrealized)
	fmt.Fprintf(out, "total        %s\n", total)
	fmt.Fprintf(out, "buy_volume   %s\n", snap.Stats.BuyVolume)
	fmt.Fprintf(out, "sell_volume  %s\n", snap.Stats.SellVolume)
	fmt.Fprintf(out, "buy_notional %s\n", snap.Stats.BuyNotional)
	fmt.Fprintf(out, "sell_notional %s\n", snap.Stats.SellNotional)
	return nil
}
