package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var nextFlags struct {
	count   int
	timeout time.Duration
}

// nextCmd 为业务发放 ID
var nextCmd = &cobra.Command{
	Use:   "next <business>",
	Short: "为业务发放 ID",
	Long:  "按配置装配引擎与业务绑定后，为指定业务发放一个或多个 ID，每行输出一个",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if nextFlags.count <= 0 {
			return fmt.Errorf("--count 必须为正数")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), nextFlags.timeout)
		defer cancel()

		cfg, _, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		a, err := newApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		business := args[0]
		for i := 0; i < nextFlags.count; i++ {
			id, err := a.boot.Loader.Next(ctx, business)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
		}
		return nil
	},
}

func init() {
	nextCmd.Flags().IntVarP(&nextFlags.count, "count", "n", 1, "发放的 ID 数量")
	nextCmd.Flags().DurationVar(&nextFlags.timeout, "timeout", 30*time.Second, "整体超时")
}
