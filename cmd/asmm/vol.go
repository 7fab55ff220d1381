package main

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"asmm-quoter/market"
)

func newVolCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vol",
		Short:   "Estimate volatility from a price or high/low series",
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVol(v, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.String("method", string(market.MethodEWMA), "simple | ewma | parkinson")
	f.String("lambda", "", "EWMA 衰减因子 (缺省 0.94)")
	f.String("returns", "log", "simple 估计器的收益率类型: log | simple")
	windowFlags(f)
	f.String("vpin-bucket", "", "VPIN 每桶成交量；设置后基于 --trades 计算订单流毒性")
	f.Int("vpin-buckets", market.DefaultVPINBuckets, "VPIN 滚动窗口桶数")
	f.String("vpin-threshold", market.DefaultToxicThreshold.String(), "VPIN 毒性阈值")
	return cmd
}

func runVol(v *viper.Viper, out io.Writer) error {
	method, err := market.ParseMethod(v.GetString("method"))
	if err != nil {
		return err
	}
	var opts market.EstimatorOptions
	if s := v.GetString("lambda"); s != "" {
		lambda, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("lambda: %w", err)
		}
		opts.Lambda = decimal.NewNullDecimal(lambda)
	}
	switch v.GetString("returns") {
	case "log", "":
	case "simple":
		opts.Returns = market.SimpleReturns
	default:
		return fmt.Errorf("returns: unknown kind %q", v.GetString("returns"))
	}

	w, err := windowFromFlags(v)
	if err != nil {
		return err
	}
	vol, err := market.EstimateVolatility(method, w, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "method       %s\n", method)
	samples := len(w.Prices)
	if method == market.MethodParkinson {
		samples = len(w.Highs)
	}
	fmt.Fprintf(out, "samples      %d\n", samples)
	fmt.Fprintf(out, "volatility   %s\n", vol)

	if v.GetString("vpin-bucket") != "" {
		return runVPIN(v, out)
	}
	return nil
}

// runVPIN 以 tick rule 判定成交方向，输出 VPIN 与毒性等级。
func runVPIN(v *viper.Viper, out io.Writer) error {
	path := v.GetString("trades")
	if path == "" {
		return fmt.Errorf("vpin: needs --trades")
	}
	bucket, err := decimal.NewFromString(v.GetString("vpin-bucket"))
	if err != nil {
		return fmt.Errorf("vpin-bucket: %w", err)
	}
	threshold, err := decimal.NewFromString(v.GetString("vpin-threshold"))
	if err != nil {
		return fmt.Errorf("vpin-threshold: %w", err)
	}
	cfg, err := market.NewVPINConfig(bucket, v.GetInt("vpin-buckets"), threshold)
	if err != nil {
		return err
	}
	trades, err := loadTrades(path)
	if err != nil {
		return err
	}
	calc, err := market.VPINFromTrades(trades, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	vpin := "n/a"
	if val, ok := calc.VPIN(); ok {
		vpin = val.String()
	}
	fmt.Fprintf(out, "vpin         %s\n", vpin)
	fmt.Fprintf(out, "toxicity     %s\n", calc.ToxicityLevel())
	fmt.Fprintf(out, "toxic        %t\n", calc.IsToxic())
	fmt.Fprintf(out, "buckets      %d\n", len(calc.Buckets()))
	return nil
}
