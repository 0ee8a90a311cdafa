package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("PLANNER_USER_PASSWORD")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		u, err := st.CreateUser(ctx, email, password)
		if err != nil {
			return eris.Wrap(err, "user create")
		}
		fmt.Fprintf(os.Stdout, "Created user %s (%s)\n", u.ID, u.Email)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().String("email", "", "account email")
	userCreateCmd.Flags().String("password", "", "account password (or PLANNER_USER_PASSWORD)")
	_ = userCreateCmd.MarkFlagRequired("email")
	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
