package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard/internal/config"
	"github.com/hookguard/hookguard/internal/output"
)

var flagConfigGlobal bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get and set configuration values",
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the effective configuration or one key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(projectDir())
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return writeConfigValue(cmd, cfg)
		}
		value, ok := config.GetValue(cfg, args[0])
		if !ok {
			return fmt.Errorf("unknown config key %q", args[0])
		}
		return writeConfigValue(cmd, value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist one configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, raw := args[0], args[1]
		value, err := config.ParseValue(key, raw)
		if err != nil {
			return err
		}

		userPath, projectPath := config.ConfigPaths(projectDir(), flagConfigPath)
		path := projectPath
		if flagConfigGlobal {
			if userPath == "" {
				return fmt.Errorf("cannot resolve user config path")
			}
			path = userPath
		}
		if err := config.WriteValue(path, key, value); err != nil {
			return err
		}

		// Reload so an invalid combination is reported immediately.
		if _, err := loadConfig(projectDir()); err != nil {
			newLogger().Warn("config is now invalid", "err", err)
		}
		newWriter().Success(fmt.Sprintf("%s = %v (%s)", key, value, path))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userPath, projectPath := config.ConfigPaths(projectDir(), flagConfigPath)
		if GetOutput() != output.FormatText {
			return newWriter().Write(map[string]string{
				"user":    userPath,
				"project": projectPath,
			})
		}
		cmd.PrintErrf("user:    %s\nproject: %s\n", userPath, projectPath)
		return nil
	},
}

func init() {
	configSetCmd.Flags().BoolVar(&flagConfigGlobal, "global", false, "write to the user config instead of the project config")
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func writeConfigValue(cmd *cobra.Command, value any) error {
	if GetOutput() != output.FormatText {
		return newWriter().Write(value)
	}
	cmd.PrintErrf("%+v\n", value)
	return nil
}
