package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntag424dna/hostdriver/ntag424"
)

var uidSlot int

var uidCmd = &cobra.Command{
	Use:   "uid",
	Short: "Authenticate then retrieve the tag's factory UID via GetCardUID",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, eng, err := connectAndSelect(ntag424.FileApplication)
		if err != nil {
			return err
		}
		defer conn.Close()

		key, err := loadSlotKey(byte(uidSlot))
		if err != nil {
			return fmt.Errorf("load key for slot %d: %w", uidSlot, err)
		}
		if err := eng.AuthenticateEV2First(byte(uidSlot), key); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		uid, err := eng.GetCardUID()
		if err != nil {
			return fmt.Errorf("get card uid: %w", err)
		}

		printKV("Card UID", [][2]string{{"hex", hexStr(uid)}})
		return nil
	},
}

func init() {
	uidCmd.Flags().IntVar(&uidSlot, "slot", 0, "key slot to authenticate with")
	rootCmd.AddCommand(uidCmd)
}
