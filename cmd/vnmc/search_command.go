package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <关键字>",
		Short: "按关键字搜索批评空间并列出候选（数据量降序，最多 30 条）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.TrimSpace(strings.Join(args, " "))
			if keyword == "" {
				return errors.New("关键字不能为空")
			}

			a, err := ctx.buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			candidates, err := a.agg.Search(cmd.Context(), keyword)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "没有匹配的作品")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), candidateTable(candidates))
			return nil
		},
	}
}
