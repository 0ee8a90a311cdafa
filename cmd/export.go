package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/event-planner/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an event's plan and chosen providers to an .xlsx file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		eventID, _ := cmd.Flags().GetString("event")
		out, _ := cmd.Flags().GetString("out")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ev, err := st.GetEvent(ctx, eventID)
		if err != nil {
			return eris.Wrap(err, "export")
		}
		if err := writeFile(out, func(w io.Writer) error { return export.WriteEvent(w, ev) }); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %s\n", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("event", "", "event id")
	exportCmd.Flags().String("out", "shortlist.xlsx", "output file")
	_ = exportCmd.MarkFlagRequired("event")
	rootCmd.AddCommand(exportCmd)
}
