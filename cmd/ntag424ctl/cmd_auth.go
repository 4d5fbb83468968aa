package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntag424dna/hostdriver/ntag424"
)

var (
	authSlot     int
	authNonFirst bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Run AuthenticateEV2First/NonFirst against the connected tag",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, eng, err := connectAndSelect(ntag424.FileApplication)
		if err != nil {
			return err
		}
		defer conn.Close()

		key, err := loadSlotKey(byte(authSlot))
		if err != nil {
			return fmt.Errorf("load key for slot %d: %w", authSlot, err)
		}

		if authNonFirst {
			err = eng.AuthenticateEV2NonFirst(byte(authSlot), key)
		} else {
			err = eng.AuthenticateEV2First(byte(authSlot), key)
		}
		if err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		sess := eng.Session()
		printSuccess("authenticated against slot %d", sess.AuthedSlot())
		printKV("Session", [][2]string{
			{"Slot", fmt.Sprintf("%d", sess.AuthedSlot())},
			{"Command counter", fmt.Sprintf("%d", sess.CommandCounter())},
			{"Active", fmt.Sprintf("%t", sess.Active())},
		})
		return nil
	},
}

func init() {
	authCmd.Flags().IntVar(&authSlot, "slot", 0, "key slot to authenticate against")
	authCmd.Flags().BoolVar(&authNonFirst, "non-first", false, "run AuthenticateEV2NonFirst instead of EV2First")
	rootCmd.AddCommand(authCmd)
}
