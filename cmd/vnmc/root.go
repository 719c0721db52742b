package main

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/John-Robertt/VNMC/internal/aggregate"
	"github.com/John-Robertt/VNMC/internal/config"
	"github.com/John-Robertt/VNMC/internal/enrich/dlsite"
	"github.com/John-Robertt/VNMC/internal/enrich/getchu"
	"github.com/John-Robertt/VNMC/internal/enrich/vndb"
	"github.com/John-Robertt/VNMC/internal/gateway"
	"github.com/John-Robertt/VNMC/internal/infra/httpx"
)

// commandContext 持有全局 flag 的值，并按需把配置/客户端/聚合器装配成 app。
// 装配发生在子命令 RunE 里而不是 init 阶段：--help 不应触发读配置。
type commandContext struct {
	proxy      string
	imageProxy bool
	verbose    bool
}

// app 是一次命令执行所需的全部依赖。
type app struct {
	logger      *zap.Logger
	eff         config.EffectiveConfig
	agg         *aggregate.Aggregator
	imageClient *http.Client
}

// buildApp 读取 vnmc.json 并装配完整依赖链。
//
// 注意：限速器在这里创建且只创建一次——同一进程内所有批评空间查询
// 必须共享同一个限速器实例。
func (c *commandContext) buildApp(cmd *cobra.Command) (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		Proxy:         c.proxy,
		ProxySet:      cmd.Flags().Changed("proxy"),
		ImageProxy:    c.imageProxy,
		ImageProxySet: cmd.Flags().Changed("image-proxy"),
	})
	if err != nil {
		return nil, err
	}

	logger := newLogger(c.verbose)

	metaClient, err := httpx.NewMetaClient(eff.ProxyURL)
	if err != nil {
		return nil, err
	}
	imageClient, err := httpx.NewImageClient(eff.ProxyURL, eff.ImageProxy)
	if err != nil {
		return nil, err
	}

	gw := gateway.New(eff.ErogameScapeEndpoint, metaClient, gateway.NewLimiter(eff.RateLimit), logger)
	agg := aggregate.New(gw,
		dlsite.New(eff.DlsiteBaseURL, metaClient, logger),
		getchu.New(eff.GetchuBaseURL, metaClient, logger),
		vndb.New(eff.VndbEndpoint, metaClient, logger),
		logger,
	)

	return &app{logger: logger, eff: eff, agg: agg, imageClient: imageClient}, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "vnmc",
		Short:         "批评空间元数据解析器（DLsite/Getchu/VNDB 补全）",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.proxy, "proxy", "", "HTTP 代理地址（覆盖 vnmc.json，传空串可清空）")
	rootCmd.PersistentFlags().BoolVar(&ctx.imageProxy, "image-proxy", false, "图片下载是否走代理")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "输出调试日志")

	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newCoverCommand(ctx))

	return rootCmd
}

// newLogger 构造面向终端的 zap logger（stderr，console 编码）。
// 日志是旁路输出：stdout 留给命令自己的结果（表格/JSON/图片路径）。
func newLogger(verbose bool) *zap.Logger {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Build 只会因非法配置失败，上面的配置是常量。
		return zap.NewNop()
	}
	return logger
}
