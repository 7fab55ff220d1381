package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"asmm-quoter/market"
)

// fill 一条成交记录：delta>0 为买入。
type fill struct {
	Delta decimal.Decimal
	Price decimal.Decimal
	Time  time.Time
}

func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseRows(f)
}

func parseRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	return cr.ReadAll()
}

// decimals 解析一行中的前 n 列。首行解析失败视为表头跳过。
func decimals(rows [][]string, n int, fn func(line int, vals []decimal.Decimal) error) error {
	for i, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if len(row) < n {
			return fmt.Errorf("line %d: want %d columns, got %d", i+1, n, len(row))
		}
		vals := make([]decimal.Decimal, n)
		var err error
		for j := 0; j < n; j++ {
			if vals[j], err = decimal.NewFromString(strings.TrimSpace(row[j])); err != nil {
				break
			}
		}
		if err != nil {
			if i == 0 {
				continue
			}
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if err := fn(i+1, vals); err != nil {
			return err
		}
	}
	return nil
}

// parsePrices 读取第一列价格序列。
func parsePrices(rows [][]string) ([]decimal.Decimal, error) {
	var out []decimal.Decimal
	err := decimals(rows, 1, func(_ int, v []decimal.Decimal) error {
		out = append(out, v[0])
		return nil
	})
	return out, err
}

// parseBars 读取 high,low 两列，追加到 w。
func parseBars(rows [][]string, w *market.Window) error {
	return decimals(rows, 2, func(_ int, v []decimal.Decimal) error {
		w.Highs = append(w.Highs, v[0])
		w.Lows = append(w.Lows, v[1])
		return nil
	})
}

// parseFills 读取 delta,price[,RFC3339 时间]。
func parseFills(rows [][]string) ([]fill, error) {
	var out []fill
	err := decimals(rows, 2, func(line int, v []decimal.Decimal) error {
		f := fill{Delta: v[0], Price: v[1]}
		if row := rows[line-1]; len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(row[2]))
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			f.Time = ts
		}
		out = append(out, f)
		return nil
	})
	return out, err
}

// parseTrades 读取 price,qty,RFC3339 时间。
func parseTrades(rows [][]string) ([]market.Trade, error) {
	var out []market.Trade
	err := decimals(rows, 2, func(line int, v []decimal.Decimal) error {
		row := rows[line-1]
		if len(row) < 3 {
			return fmt.Errorf("line %d: trade needs a timestamp", line)
		}
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(row[2]))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, market.Trade{Price: v[0], Qty: v[1], Ts: ts})
		return nil
	})
	return out, err
}

// parseBook 读取 side,price,qty 档位（side 为 bid/ask），写入新的 OrderBook。
func parseBook(rows [][]string) (*market.OrderBook, error) {
	var bids, asks []market.Level
	for i, row := range rows {
		if len(row) < 3 {
			continue
		}
		side := strings.ToLower(strings.TrimSpace(row[0]))
		if i == 0 && side == "side" {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		l := market.Level{Price: price, Qty: qty}
		switch side {
		case "bid", "buy":
			bids = append(bids, l)
		case "ask", "sell":
			asks = append(asks, l)
		default:
			return nil, fmt.Errorf("line %d: unknown side %q", i+1, row[0])
		}
	}
	ob := market.NewOrderBook()
	ob.ApplyDelta(bids, asks)
	return ob, nil
}

// loadTradeWindow 将成交聚合为 interval 周期的 Kline 窗口。
func loadTradeWindow(path string, interval time.Duration) (market.Window, error) {
	if interval <= 0 {
		return market.Window{}, fmt.Errorf("interval: must be positive")
	}
	trades, err := loadTrades(path)
	if err != nil {
		return market.Window{}, err
	}
	return market.WindowFromKlines(market.BarsFromTrades(trades, interval)), nil
}

func loadTrades(path string) ([]market.Trade, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	trades, err := parseTrades(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trades, nil
}

// loadWindow 组装价格与高低价窗口；空路径跳过。
func loadWindow(pricesPath, barsPath string) (market.Window, error) {
	var w market.Window
	if pricesPath != "" {
		rows, err := readRows(pricesPath)
		if err != nil {
			return w, err
		}
		if w.Prices, err = parsePrices(rows); err != nil {
			return w, fmt.Errorf("%s: %w", pricesPath, err)
		}
	}
	if barsPath != "" {
		rows, err := readRows(barsPath)
		if err != nil {
			return w, err
		}
		if err := parseBars(rows, &w); err != nil {
			return w, fmt.Errorf("%s: %w", barsPath, err)
		}
	}
	return w, nil
}

// windowFromFlags 选择 --trades 聚合或 --prices/--highs-lows 文件。
func windowFromFlags(v *viper.Viper) (market.Window, error) {
	if path := v.GetString("trades"); path != "" {
		return loadTradeWindow(path, v.GetDuration("interval"))
	}
	return loadWindow(v.GetString("prices"), v.GetString("highs-lows"))
}

// windowFlags 注册窗口相关 flag。
func windowFlags(f *pflag.FlagSet) {
	f.String("prices", "", "价格序列 CSV，第一列为价格")
	f.String("highs-lows", "", "high,low CSV (parkinson 使用)")
	f.String("trades", "", "成交 CSV: price,qty,RFC3339 时间；聚合为 Kline 后估计")
	f.Duration("interval", time.Minute, "--trades 的聚合周期")
}
