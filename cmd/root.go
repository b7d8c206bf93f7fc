package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/logs"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/message"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

var (
	cfgFile  string
	logClose = func() {}

	// OutputOpt is the global output directory every provider writes under.
	OutputOpt = types.Option{
		Name:        "output",
		Short:       "o",
		Description: "Output directory for reports and run statistics",
		Default:     "intunectl-output",
		Value:       "intunectl-output",
		Type:        types.String,
	}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "intunectl",
	Short: "intunectl runs Intune reporting and remediation jobs against Microsoft Graph.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")
		noColor, _ := cmd.Flags().GetBool("no-color")
		message.SetQuiet(quiet)
		message.SetNoColor(noColor)

		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		logFile, _ := cmd.Flags().GetString("log-file")
		verbose, _ := cmd.Flags().GetBool("verbose")

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		closer, err := logs.Configure(logs.Options{
			Level:   level,
			JSON:    jsonLogs,
			LogFile: logFile,
		})
		if err != nil {
			return err
		}
		logClose = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logClose()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.intunectl.yaml)")
	rootCmd.PersistentFlags().StringP(OutputOpt.Name, OutputOpt.Short, OutputOpt.Value, OutputOpt.Description)
	rootCmd.PersistentFlags().Bool("dry-run", false, "Log intended changes without performing them")
	rootCmd.PersistentFlags().Duration("timeout", 3*time.Hour, "Overall run deadline, 0 disables")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress informational console messages")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit JSON logs on stderr")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("automation-account",
		"", "Seed configuration from <subscription>/<resourceGroup>/<account> Automation variables")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".intunectl" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".intunectl")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func options2Flag(options []*types.Option, common []*types.Option, cmd *cobra.Command) {
	for _, option := range options {
		option2Flag(option, cmd)
	}

	for _, option := range common {
		option2Flag(option, cmd)
	}
}

func option2Flag(option *types.Option, cmd *cobra.Command) {
	short := option.Short
	if !isShorthandAvailable(cmd.Flags(), short) {
		short = ""
	}

	switch option.Type {
	case types.String:
		cmd.Flags().StringP(option.Name, short, option.Value, option.Description)
	case types.Bool:
		value, _ := strconv.ParseBool(option.Value) // Convert string to bool
		cmd.Flags().BoolP(option.Name, short, value, option.Description)
	case types.Int:
		intValue, _ := strconv.Atoi(option.Value) // Convert string to int
		cmd.Flags().IntP(option.Name, short, intValue, option.Description)
	}
}

// isShorthandAvailable reports whether a single-letter shorthand is still
// free on the flag set.
func isShorthandAvailable(flags *pflag.FlagSet, shorthand string) bool {
	if shorthand == "" {
		return true
	}

	available := true
	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Shorthand == shorthand {
			available = false
		}
	})
	return available
}

// resolveOptions fills option values with flag > env/config > default
// precedence. Automation-account variables land as viper defaults, so they
// participate through the middle layer under their legacy dashless names.
func resolveOptions(cmd *cobra.Command, options []*types.Option) {
	for _, option := range options {
		if cmd.Flags().Changed(option.Name) {
			option.Value = flagValue(cmd, option)
			continue
		}

		key := strings.ToLower(option.Name)
		legacy := strings.ReplaceAll(key, "-", "")
		switch {
		case viper.IsSet(key):
			option.Value = viper.GetString(key)
		case viper.IsSet(legacy):
			option.Value = viper.GetString(legacy)
		default:
			option.Value = flagValue(cmd, option)
		}
	}
}

func flagValue(cmd *cobra.Command, option *types.Option) string {
	switch option.Type {
	case types.Bool:
		value, _ := cmd.Flags().GetBool(option.Name)
		return strconv.FormatBool(value)
	case types.Int:
		value, _ := cmd.Flags().GetInt(option.Name)
		return strconv.Itoa(value)
	default:
		value, _ := cmd.Flags().GetString(option.Name)
		return value
	}
}
