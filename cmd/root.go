// Package cmd wires the edge node's cobra command tree and its viper-backed
// environment configuration.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RootCmd is the base command when fingerprint-edge is called with no
// subcommand.
var RootCmd = &cobra.Command{
	Use:   "fingerprint-edge",
	Short: "Offline-first fingerprint attendance coordinator",
	Long: `fingerprint-edge coordinates fingerprint scanners, a local document
store, operator UIs, and an intermittently-reachable remote backend for a
single classroom or building's attendance tracking, continuing to enroll
and record attendance while the remote is unreachable and syncing once it
comes back.`,
}

// Execute adds all child commands to RootCmd and runs it. Called by main().
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.env format, optional)")

	viper.SetDefault("port", "8080")
	viper.SetDefault("log_level", "debug")
	viper.SetDefault("log_format", "json")
	viper.SetDefault("device_config_path", "devices.json")
}

// initConfig binds MONGO_URI, DATABASE_NAME, HOST_REMOTE_URL and friends
// from the environment, optionally overlaying a .env-style file passed via
// --config.
func initConfig() {
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("env")
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "warning: could not read config file:", err)
		}
	}
}
