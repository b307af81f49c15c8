package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kilnbazaar/config"
	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/storage/postgres"
)

var keepUsers bool

var resetDBCmd = &cobra.Command{
	Use:   "reset-db",
	Short: "Truncate marketplace tables (development only)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

		pg, err := postgres.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer pg.Close()

		tables := resetTables(keepUsers)
		// CASCADE clears request tables that reference providers or users.
		_, err = pg.GetPool().Exec(cmd.Context(), "TRUNCATE TABLE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
		if err != nil {
			log.Error("failed to truncate tables", logger.Error(err))
			return err
		}
		log.Info(fmt.Sprintf("truncated %d tables", len(tables)))
		return nil
	},
}

func init() {
	resetDBCmd.Flags().BoolVar(&keepUsers, "keep-users", false, "keep users and their otp codes")
	rootCmd.AddCommand(resetDBCmd)
}

func resetTables(keepUsers bool) []string {
	var tables []string
	for _, k := range models.Kinds {
		for _, l := range models.Lists {
			tables = append(tables, k.Table(l))
		}
		tables = append(tables, k.ProvidersTable())
	}
	if !keepUsers {
		tables = append(tables, "otp_codes", "users")
	}
	return tables
}
