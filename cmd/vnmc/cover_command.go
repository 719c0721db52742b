package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/VNMC/internal/infra/imgx"
)

func newCoverCommand(ctx *commandContext) *cobra.Command {
	var (
		idFlag  int
		outFlag string
	)

	cmd := &cobra.Command{
		Use:   "cover",
		Short: "下载一部作品的封面图",
		RunE: func(cmd *cobra.Command, args []string) error {
			if idFlag <= 0 {
				return errors.New("必须指定 --id")
			}
			if outFlag == "" {
				outFlag = fmt.Sprintf("%d.jpg", idFlag)
			}

			a, err := ctx.buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			rec, err := a.agg.Resolve(cmd.Context(), idFlag)
			if err != nil {
				return err
			}
			if rec == nil {
				return errors.New("未解析到作品")
			}

			u := rec.CoverImageURL()
			if u == "" {
				return errors.New("该作品没有可用封面")
			}
			a.logger.Debug("下载封面", zap.String("url", u))

			data, err := imgx.Download(cmd.Context(), a.imageClient, u)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outFlag, data, 0o644); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), outFlag)
			return nil
		},
	}

	cmd.Flags().IntVar(&idFlag, "id", 0, "批评空间作品 id")
	cmd.Flags().StringVar(&outFlag, "out", "", "输出文件路径（默认 <id>.jpg）")
	return cmd
}
