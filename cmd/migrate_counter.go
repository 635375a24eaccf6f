package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/moto-nrw/fingerprint-edge/internal/adapter/repository/mongo"
	"github.com/moto-nrw/fingerprint-edge/internal/config"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/counter"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/allocator"
)

var migrateCounterStartValue int

// migrateCounterCmd seeds or resets the student UID counter row, the
// offline equivalent of the remote's next-ids sequence (spec.md §3, §6).
var migrateCounterCmd = &cobra.Command{
	Use:   "migrate-counter",
	Short: "initialize or reset the local student UID counter",
	Long:  `Connects to the local store and sets the student_sequence counter row to --start-value.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.DatabaseName)
		if err != nil {
			log.Fatal(err)
		}
		defer func() { _ = store.Close(ctx) }()

		alloc := allocator.New(store)
		if err := alloc.Initialize(ctx, migrateCounterStartValue); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("student_sequence counter initialized to %d\n", migrateCounterStartValue)
	},
}

func init() {
	RootCmd.AddCommand(migrateCounterCmd)

	migrateCounterCmd.Flags().IntVar(&migrateCounterStartValue, "start-value", counter.DefaultStartValue, "counter value to initialize to")
}
