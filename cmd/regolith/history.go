package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/termfx/regolith/db"
	"github.com/termfx/regolith/models"
)

func historyCommand() *cobra.Command {
	var dsn string
	var limit int
	var failuresOnly bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded evaluations from the history store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return fmt.Errorf("no history database; set --history or REGOLITH_HISTORY_DB")
			}
			gdb, err := db.Connect(dsn, false)
			if err != nil {
				return err
			}
			query := gdb.Order("created_at desc").Limit(limit)
			if failuresOnly {
				query = query.Where("errors is not null and errors != ''")
			}
			var records []models.Evaluation
			if err := query.Find(&records).Error; err != nil {
				return err
			}
			for _, rec := range records {
				status := "ok"
				if rec.Undefined {
					status = "undefined"
				}
				if len(rec.Errors) > 0 {
					status = "error"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s  %6dµs  %s\n",
					rec.CreatedAt.Format(time.RFC3339), status, rec.DurationMicros, rec.Query)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "history", os.Getenv("REGOLITH_HISTORY_DB"), "sqlite path or libsql URL")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show")
	cmd.Flags().BoolVar(&failuresOnly, "failures", false, "show only evaluations that produced errors")
	return cmd
}
