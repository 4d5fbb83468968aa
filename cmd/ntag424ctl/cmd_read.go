package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	readFile   string
	readSlot   int
	readOffset uint8
	readLength uint8
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Authenticate then ReadData from an application file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := fileIDFromFlag(readFile)
		if err != nil {
			return err
		}

		conn, eng, err := connectAndSelect(file)
		if err != nil {
			return err
		}
		defer conn.Close()

		key, err := loadSlotKey(byte(readSlot))
		if err != nil {
			return fmt.Errorf("load key for slot %d: %w", readSlot, err)
		}
		if err := eng.AuthenticateEV2First(byte(readSlot), key); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		data, err := eng.ReadData(file, readOffset, readLength)
		if err != nil {
			return fmt.Errorf("read data: %w", err)
		}

		printSuccess("read %d bytes from %s at offset %d", len(data), readFile, readOffset)
		printKV("Data", [][2]string{{"hex", hexStr(data)}})
		return nil
	},
}

func init() {
	readCmd.Flags().StringVar(&readFile, "file", "ndef", "file to read: cc, ndef, or proprietary")
	readCmd.Flags().IntVar(&readSlot, "slot", 0, "key slot to authenticate with")
	readCmd.Flags().Uint8Var(&readOffset, "offset", 0, "byte offset to start reading at")
	readCmd.Flags().Uint8Var(&readLength, "length", 32, "number of bytes to read")
	rootCmd.AddCommand(readCmd)
}
