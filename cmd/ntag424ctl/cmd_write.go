package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	writeFile   string
	writeSlot   int
	writeOffset uint8
	writeHex    string
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Authenticate then WriteData to an application file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := fileIDFromFlag(writeFile)
		if err != nil {
			return err
		}
		data, err := hex.DecodeString(writeHex)
		if err != nil {
			return fmt.Errorf("--data is not valid hex: %w", err)
		}

		conn, eng, err := connectAndSelect(file)
		if err != nil {
			return err
		}
		defer conn.Close()

		key, err := loadSlotKey(byte(writeSlot))
		if err != nil {
			return fmt.Errorf("load key for slot %d: %w", writeSlot, err)
		}
		if err := eng.AuthenticateEV2First(byte(writeSlot), key); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		if err := eng.WriteData(file, data, writeOffset); err != nil {
			return fmt.Errorf("write data: %w", err)
		}

		printSuccess("wrote %d bytes to %s at offset %d", len(data), writeFile, writeOffset)
		return nil
	},
}

func init() {
	writeCmd.Flags().StringVar(&writeFile, "file", "ndef", "file to write: cc, ndef, or proprietary")
	writeCmd.Flags().IntVar(&writeSlot, "slot", 0, "key slot to authenticate with")
	writeCmd.Flags().Uint8Var(&writeOffset, "offset", 0, "byte offset to start writing at")
	writeCmd.Flags().StringVar(&writeHex, "data", "", "hex-encoded payload to write")
	rootCmd.AddCommand(writeCmd)
}
