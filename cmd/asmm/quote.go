package main

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"asmm-quoter/config"
	"asmm-quoter/infrastructure/alert"
	"asmm-quoter/infrastructure/logger"
	"asmm-quoter/internal/engine"
	"asmm-quoter/market"
	"asmm-quoter/strategy/asmm"
)

func newQuoteCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "quote",
		Short:   "Compute reservation price, spread and bid/ask",
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := prepareQuote(v)
			if err != nil {
				return err
			}
			defer run.log.Close()
			return run.quote(cmd.OutOrStdout(), "")
		},
	}
	quoteFlags(cmd.Flags())
	cmd.Flags().Bool("compare", false, "GLFT 模型下同时输出 A-S 报价")
	return cmd
}

func quoteFlags(f *pflag.FlagSet) {
	windowFlags(f)
	f.String("book", "", "盘口 CSV: side,price,qty；以最优买卖价中点为 mid")
	f.String("mid", "", "中间价 (缺省取盘口或价格序列最后一个)")
	f.String("inventory", "0", "当前持仓，正为多头")
	f.Uint64("ttl-ms", 0, "距会话结束的毫秒数 (缺省为 terminalTimeMs)")
}

// quoteRun 一次报价所需的全部输入。
type quoteRun struct {
	app     config.AppConfig
	log     *logger.Logger
	session *engine.Session
	window  market.Window
	snap    market.Snapshot
	inv     decimal.Decimal
	compare bool
}

func prepareQuote(v *viper.Viper) (*quoteRun, error) {
	app, err := loadAppConfig(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	log, err := newLogger(v, app)
	if err != nil {
		return nil, err
	}
	run, err := prepareSession(v, app, log)
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	return run, nil
}

func prepareSession(v *viper.Viper, app config.AppConfig, log *logger.Logger) (*quoteRun, error) {
	alerts := alert.NewManager(time.Minute, alert.NewLogChannel("log", log))
	sess, err := engine.NewSessionFromConfig(app, log, engine.WithAlerts(alerts))
	if err != nil {
		return nil, err
	}
	w, err := windowFromFlags(v)
	if err != nil {
		return nil, err
	}

	ttl := sess.Config().TerminalTimeMs()
	if v.IsSet("ttl-ms") {
		ttl = v.GetUint64("ttl-ms")
	}
	now := time.Now()

	var snap market.Snapshot
	switch {
	case v.GetString("mid") != "":
		mid, err := decimal.NewFromString(v.GetString("mid"))
		if err != nil {
			return nil, fmt.Errorf("mid: %w", err)
		}
		snap = market.Snapshot{MidPrice: mid, TimeToTerminalMs: ttl, Timestamp: now}
	case v.GetString("book") != "":
		rows, err := readRows(v.GetString("book"))
		if err != nil {
			return nil, err
		}
		book, err := parseBook(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.GetString("book"), err)
		}
		if snap, err = book.Snapshot(ttl, now); err != nil {
			return nil, err
		}
	case len(w.Prices) > 0:
		snap = market.Snapshot{MidPrice: w.Prices[len(w.Prices)-1], TimeToTerminalMs: ttl, Timestamp: now}
	default:
		return nil, fmt.Errorf("mid: pass --mid, --book or --prices")
	}

	inv, err := decimal.NewFromString(v.GetString("inventory"))
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	// 以 mid 建立初始持仓
	if !inv.IsZero() {
		if _, err := sess.OnFill(inv, snap.MidPrice, now); err != nil {
			return nil, err
		}
	}

	return &quoteRun{
		app:     app,
		log:     log,
		session: sess,
		window:  w,
		snap:    snap,
		inv:     inv,
		compare: v.GetBool("compare"),
	}, nil
}

// quote 计算并输出一次报价；静态波动率优先于估计器。
func (r *quoteRun) quote(out io.Writer, prefix string) error {
	static, ok, err := r.app.Volatility.StaticValue()
	if err != nil {
		return err
	}
	var q asmm.Quote
	if ok {
		q, err = r.session.QuoteWithVolatility(r.snap, static)
	} else {
		q, err = r.session.Quote(r.snap, r.window)
	}
	if err != nil {
		return err
	}
	vol := r.session.Statistics().LastVolatility

	fmt.Fprintf(out, "%s%-12s %s\n", prefix, "model", r.app.Strategy.ModelName())
	fmt.Fprintf(out, "%s%-12s %s\n", prefix, "mid", r.snap.MidPrice)
	fmt.Fprintf(out, "%s%-12s %s\n", prefix, "inventory", r.inv)
	fmt.Fprintf(out, "%s%-12s %d\n", prefix, "ttl_ms", r.snap.TimeToTerminalMs)
	fmt.Fprintf(out, "%s%-12s %s\n", prefix, "volatility", vol)
	printQuote(out, prefix, q)

	if g, isGLFT := r.session.Model().(*asmm.GLFT); isGLFT && r.compare {
		_, as, err := g.CompareWithAvellanedaStoikov(r.snap.MidPrice, r.inv, r.session.Config(), vol, r.snap.TimeToTerminalMs)
		if err != nil {
			return err
		}
		printQuote(out, prefix+"as_", as)
	}
	return nil
}

func printQuote(out io.Writer, prefix string, q asmm.Quote) {
	fmt.Fprintf(out, "%-12s %s\n", prefix+"reservation", q.ReservationPrice)
	fmt.Fprintf(out, "%-12s %s\n", prefix+"spread", q.Spread)
	fmt.Fprintf(out, "%-12s %s\n", prefix+"bid", q.Bid)
	fmt.Fprintf(out, "%-12s %s\n", prefix+"ask", q.Ask)
}
