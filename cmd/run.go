package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/encodeous/mylar/core"
	"github.com/encodeous/mylar/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var (
	configPath string
	socketDir  string
	logPath    string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <asn> <ipv4>-<relation>...",
	Short: "Run mylar",
	Long: `This will run mylar on the current host. Each neighbour is given as
<ipv4>-<relation> with relation one of cust, peer or prov; the neighbour's
socket is expected at <socket-dir>/<ipv4>. Alternatively pass --config with a
YAML file describing the same.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg state.LocalCfg
		if configPath != "" {
			file, err := os.ReadFile(configPath)
			if err != nil {
				return err
			}
			if err := yaml.Unmarshal(file, &cfg); err != nil {
				return err
			}
		} else {
			if len(args) < 2 {
				return fmt.Errorf("expected <asn> and at least one <ipv4>-<relation> neighbour")
			}
			asn, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("%s is not a valid asn: %w", args[0], err)
			}
			cfg.ASN = uint32(asn)
			for _, arg := range args[1:] {
				n, err := state.ParseNeighborArg(arg)
				if err != nil {
					return err
				}
				cfg.Neighbors = append(cfg.Neighbors, n)
			}
		}

		if socketDir != "" {
			cfg.SocketDir = socketDir
		}
		if logPath != "" {
			cfg.LogPath = logPath
		}

		if err := state.LocalConfigValidator(&cfg); err != nil {
			return err
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		cmd.SilenceUsage = true
		return core.Start(cfg, level)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file instead of positional arguments")
	runCmd.Flags().StringVarP(&socketDir, "socket-dir", "d", "", "Directory holding the neighbour sockets")
	runCmd.Flags().StringVarP(&logPath, "log-path", "l", "", "Also write logs to this file")
	runCmd.Flags().BoolVarP(&state.DBG_log_frames, "lframes", "f", false, "Write every frame to the console")
	runCmd.Flags().BoolVarP(&state.DBG_log_route_table, "ltable", "t", false, "Outputs route table to the console")
}
