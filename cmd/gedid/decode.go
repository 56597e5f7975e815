package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ceyewan/gedid/idgen"
)

// decodeOutput decode 命令的输出
type decodeOutput struct {
	ID   int64  `json:"id"`
	Time string `json:"time"`
	idgen.SnowflakeParts
}

// decodeCmd 拆解 Snowflake ID
var decodeCmd = &cobra.Command{
	Use:   "decode <snowflake-id>",
	Short: "拆解 Snowflake ID",
	Long:  "按配置中的纪元 (idgen.snowflake.epoch) 拆解 Snowflake ID，输出时间戳、数据中心、节点与序列号",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id < 0 {
			return fmt.Errorf("无效的 Snowflake ID %q", args[0])
		}

		cfg, _, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		epoch := cfg.IDGen.Snowflake.Epoch
		if epoch == 0 {
			epoch = idgen.DefaultEpoch
		}

		parts := idgen.Decompose(id, epoch)
		out := decodeOutput{
			ID:             id,
			Time:           time.UnixMilli(parts.Timestamp).UTC().Format(time.RFC3339Nano),
			SnowflakeParts: parts,
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}
