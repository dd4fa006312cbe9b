// Package cmd contains flowmeter's command line interface.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lavanyaayna9/flowmeter/internal/config"
	"github.com/lavanyaayna9/flowmeter/internal/logging"
)

const (
	flagConfigFile = "config"

	flagIface   = "input.iface"
	flagFile    = "input.file"
	flagList    = "input.list"
	flagRolling = "input.rolling"

	flagPrefix      = "output.prefix"
	flagRollingSize = "output.rolling_size"
	flagLogFile     = "output.log_file"
	flagMonitorFile = "output.monitor_file"
	flagForensic    = "output.forensic"
	flagAlarmOnly   = "output.alarm_only"
	flagSeparator   = "output.separator"
	flagStateFile   = "output.state_file"

	flagPluginDir       = "tuning.plugin_dir"
	flagManifestFile    = "tuning.manifest_file"
	flagSubnetFile      = "tuning.subnet_file"
	flagSnaplen         = "tuning.snaplen"
	flagRingBufferSize  = "tuning.ring_buffer_size"
	flagBPFFile         = "tuning.bpf_file"
	flagHashScaleFactor = "tuning.hash_scale_factor"
	flagSensorID        = "tuning.sensor_id"
	flagCPUPin          = "tuning.cpu_pin"
	flagMonitorInterval = "tuning.monitor_interval_seconds"
	flagPriority        = "tuning.priority"

	flagLogLevel       = "logging.level"
	flagLogEncoding    = "logging.encoding"
	flagLogDestination = "logging.destination"
)

// Execute builds and runs the root command.
func Execute() error {
	rootCmd, err := newRootCmd(run)
	if err != nil {
		return err
	}
	return rootCmd.Execute()
}

type runFunc func(cfg *config.Config, bpfExpr string) error

func newRootCmd(run runFunc) (*cobra.Command, error) {
	cfg := config.New()

	rootCmd := &cobra.Command{
		Use:   "flowmeter",
		Short: "flowmeter captures and classifies network traffic flows",
		Args:  cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfg); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return initLogging(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Remaining positional args are a tcpdump-style inline BPF
			// expression (§6 "BPF filter from file ... or from remaining
			// positional args").
			return run(cfg, strings.Join(args, " "))
		},
	}

	if err := registerFlags(rootCmd, cfg); err != nil {
		return nil, fmt.Errorf("failed to register flags: %w", err)
	}
	return rootCmd, nil
}

func registerFlags(cmd *cobra.Command, cfg *config.Config) error {
	pflags := cmd.PersistentFlags()

	pflags.StringP(flagConfigFile, "C", "", "path to configuration file")

	// Input selection (§6 "Input selection (mutually exclusive)").
	pflags.StringVarP(&cfg.Input.Iface, flagIface, "i", "", "listen on interface NAME")
	pflags.StringVarP(&cfg.Input.File, flagFile, "r", "", "read one capture file PATH ('-' for stdin)")
	pflags.StringVarP(&cfg.Input.List, flagList, "R", "", "read a list of capture files from PATH")
	pflags.StringVarP(&cfg.Input.Rolling, flagRolling, "D", "", "watch a rolling numeric-suffixed capture series EXPR[:SEP][,STOP]")

	// Output controls (§6 "Output controls").
	pflags.StringVarP(&cfg.Output.Prefix, flagPrefix, "w", "-", "prefix for all generated files ('-' for stdout)")
	pflags.StringVarP(&cfg.Output.Rolling, flagRollingSize, "W", "", "rolling sized output PREFIX[:SIZE][,START]")
	pflags.StringVarP(&cfg.Output.LogFile, flagLogFile, "l", "", "divert log to file")
	pflags.StringVarP(&cfg.Output.MonitorFile, flagMonitorFile, "m", "", "divert monitoring to file")
	pflags.BoolVarP(&cfg.Output.Forensic, flagForensic, "s", false, "produce per-packet forensic records")
	pflags.BoolVar(&cfg.Output.AlarmOnly, flagAlarmOnly, false, "restrict the forensic record to alarmed flows only")
	pflags.StringVar(&cfg.Output.Separator, flagSeparator, "\t", "text row column separator")
	pflags.StringVar(&cfg.Output.StateFile, flagStateFile, "", "state-history checkpoint file")

	// Tuning (§6 "Tuning").
	pflags.StringVarP(&cfg.Tuning.PluginDir, flagPluginDir, "p", "", "plugin directory")
	pflags.StringVarP(&cfg.Tuning.ManifestFile, flagManifestFile, "b", "", "plugin white/black list FILE")
	pflags.StringVar(&cfg.Tuning.SubnetFile, flagSubnetFile, "", "CIDR range file flagging matching flows (status.SubnetFlagged)")
	pflags.IntVarP(&cfg.Tuning.Snaplen, flagSnaplen, "S", config.DefaultSnaplen, "snap length")
	pflags.IntVarP(&cfg.Tuning.RingBufferSize, flagRingBufferSize, "B", config.DefaultRingBufferBlocks, "live RX ring buffer size (blocks)")
	pflags.StringVarP(&cfg.Tuning.BPFFile, flagBPFFile, "F", "", "BPF filter FILE")
	pflags.IntVarP(&cfg.Tuning.HashScaleFactor, flagHashScaleFactor, "f", config.DefaultHashScaleFactor, "hash scale factor")
	pflags.IntVarP(&cfg.Tuning.SensorID, flagSensorID, "x", 0, "sensor identifier")
	pflags.IntVarP(&cfg.Tuning.CPUPin, flagCPUPin, "c", -1, "pin capture thread to CPU N")
	pflags.Float64VarP(&cfg.Tuning.MonitorInterval, flagMonitorInterval, "M", config.DefaultMonitorIntervalSeconds, "monitoring interval seconds")
	pflags.IntVarP(&cfg.Tuning.Priority, flagPriority, "P", 0, "process priority")

	pflags.StringVar(&cfg.Logging.Level, flagLogLevel, "info", "log level")
	pflags.StringVar(&cfg.Logging.Encoding, flagLogEncoding, "logfmt", "log message encoding")
	pflags.StringVar(&cfg.Logging.Destination, flagLogDestination, "", "log destination file path (empty for stdout)")

	return viper.BindPFlags(pflags)
}

// initConfig reads a config file (if named) and environment variables,
// merging them with the already-parsed flags.
func initConfig(cfg *config.Config) error {
	path := viper.GetString(flagConfigFile)
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return viper.Unmarshal(cfg)
}

func initLogging(cfg *config.Config) error {
	opts := []logging.Option{logging.WithName("flowmeter")}
	dest := cfg.Logging.Destination
	if dest == "" {
		dest = cfg.Output.LogFile
	}
	if dest != "" {
		opts = append(opts, logging.WithFileOutput(dest))
	}
	level := logging.LevelFromString(cfg.Logging.Level)
	if level == logging.LevelUnknown {
		return fmt.Errorf("invalid log level %q", cfg.Logging.Level)
	}
	return logging.Init(level, logging.Encoding(cfg.Logging.Encoding), opts...)
}
