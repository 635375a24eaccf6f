package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/device"
)

var seedDevicesOutputPath string

// seedDevicesCmd writes a starter device config file containing the
// single fallback entry devicepool.LoadConfig would otherwise synthesize,
// so an operator has a real file to edit for their scanner inventory
// (spec.md §6).
var seedDevicesCmd = &cobra.Command{
	Use:   "seed-devices",
	Short: "write a starter device config file",
	Long:  `Writes a device config JSON array (one default entry) to --output, ready for an operator to edit with the site's actual scanner IPs.`,
	Run: func(cmd *cobra.Command, args []string) {
		outputPath := seedDevicesOutputDefault()
		configs := []device.Config{device.Default()}

		data, err := json.MarshalIndent(configs, "", "  ")
		if err != nil {
			log.Fatal(err)
		}

		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("wrote %d device(s) to %s\n", len(configs), outputPath)
	},
}

func init() {
	RootCmd.AddCommand(seedDevicesCmd)

	seedDevicesCmd.Flags().StringVar(&seedDevicesOutputPath, "output", "", "path to write the device config file (defaults to DEVICE_CONFIG_PATH)")
}

func seedDevicesOutputDefault() string {
	if seedDevicesOutputPath != "" {
		return seedDevicesOutputPath
	}
	return viper.GetString("device_config_path")
}
