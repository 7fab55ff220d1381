// Command asmm computes Avellaneda-Stoikov / GLFT quotes, volatility
// estimates and fill PnL from CSV files.
//
// 用法：
//
//	asmm quote --config configs/asmm.yaml --prices data/mids.csv --mid 100 --inventory 0.5
//	asmm watch --config configs/asmm.yaml --mid 100
//	asmm vol --method ewma --lambda 0.94 --prices data/mids.csv
//	asmm pnl --fills data/fills.csv --mark 101
//
// 所有 flag 均可用 ASMM_ 前缀环境变量设置，例如 ASMM_TTL_MS=60000。
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"asmm-quoter/config"
	"asmm-quoter/infrastructure/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ASMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "asmm",
		Short:         "Avellaneda-Stoikov market making quote calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "YAML 配置文件 (缺省使用内置开发配置)")
	root.PersistentFlags().Bool("log", false, "按配置输出结构化日志")

	root.AddCommand(newQuoteCmd(v), newWatchCmd(v), newVolCmd(v), newPnLCmd(v))
	return root
}

// bindFlags 在命令执行前绑定 flag；每次只运行一个子命令，同名 flag 不冲突。
func bindFlags(v *viper.Viper) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return v.BindPFlags(cmd.Flags())
	}
}

// loadAppConfig 读取配置文件；未指定时用 Default 加环境变量覆盖。
func loadAppConfig(path string) (config.AppConfig, error) {
	if path != "" {
		return config.LoadWithEnvOverrides(path)
	}
	app := config.Default()
	config.ApplyEnvOverrides(&app)
	return app, config.Validate(app)
}

func newLogger(v *viper.Viper, app config.AppConfig) (*logger.Logger, error) {
	if !v.GetBool("log") {
		return logger.NewNop(), nil
	}
	return logger.New(app.Logging)
}
