package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// enginesCmd 列出已注册的引擎与业务绑定
var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "列出引擎与业务绑定",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, _, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		a, err := newApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		loader := a.boot.Loader
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ENGINE\tBUSINESS\tSTART_ID")
		bound := make(map[string]bool)
		for _, b := range loader.Bindings() {
			fmt.Fprintf(w, "%s\t%s\t%d\n", b.Engine, b.Business, b.StartID)
			bound[b.Engine] = true
		}
		for _, name := range loader.Engines() {
			if !bound[name] {
				fmt.Fprintf(w, "%s\t-\t-\n", name)
			}
		}
		return w.Flush()
	},
}
