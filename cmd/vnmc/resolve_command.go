package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/VNMC/internal/domain"
	"github.com/John-Robertt/VNMC/internal/resolve"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		idFlag   int
		nameFlag string
		pickFlag bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "解析一条完整记录并以 JSON 输出",
		Long: "按 --id 直接解析，或按 --name 搜索后解析。\n" +
			"--name 默认只接受逐字相等的候选（批量安全）；加 --pick 进入交互选择。",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (idFlag > 0) == (nameFlag != "") {
				return errors.New("--id 与 --name 必须二选一")
			}

			a, err := ctx.buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			var rec *domain.GameRecord
			switch {
			case idFlag > 0:
				rec, err = a.agg.Resolve(cmd.Context(), idFlag)
			case pickFlag:
				picker := stdinPicker(cmd.InOrStdin(), cmd.ErrOrStderr())
				rec, err = resolve.Interactive(cmd.Context(), a.agg, nameFlag, picker)
			default:
				rec, err = resolve.Automatic(cmd.Context(), a.agg, nameFlag)
			}
			if err != nil {
				return err
			}
			if rec == nil {
				return errors.New("未解析到作品")
			}

			return writeRecordJSON(cmd.OutOrStdout(), rec)
		},
	}

	cmd.Flags().IntVar(&idFlag, "id", 0, "批评空间作品 id")
	cmd.Flags().StringVar(&nameFlag, "name", "", "作品名（搜索后解析）")
	cmd.Flags().BoolVar(&pickFlag, "pick", false, "交互式挑选候选（配合 --name）")
	return cmd
}

// stdinPicker 返回一个从终端读输入的 Picker：
// 输入序号（表格第一列）选中候选，输入其它文本当作新关键字重新搜索，
// 空行放弃。EOF 同样视为放弃。
func stdinPicker(in io.Reader, out io.Writer) resolve.Picker {
	return func(search resolve.SearchFn, initial string) (int, error) {
		sc := bufio.NewScanner(in)

		candidates, err := search(initial)
		if err != nil {
			return -1, err
		}

		for {
			if len(candidates) == 0 {
				fmt.Fprintln(out, "没有匹配的作品")
			} else {
				fmt.Fprintln(out, candidateTable(candidates))
			}
			fmt.Fprint(out, "序号选择 / 输入新关键字重搜 / 空行放弃 > ")

			if !sc.Scan() {
				return -1, sc.Err()
			}
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				return -1, nil
			}

			if n, convErr := strconv.Atoi(line); convErr == nil {
				// 表格序号从 1 开始。
				return n - 1, nil
			}

			candidates, err = search(line)
			if err != nil {
				return -1, err
			}
		}
	}
}
