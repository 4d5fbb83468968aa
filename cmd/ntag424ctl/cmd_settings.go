package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntag424dna/hostdriver/ntag424"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change a file's comm mode and access rights",
}

var (
	settingsFile string
	settingsSlot int
)

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "GetFileSettings for an application file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := fileIDFromFlag(settingsFile)
		if err != nil {
			return err
		}

		conn, eng, err := connectAndSelect(file)
		if err != nil {
			return err
		}
		defer conn.Close()

		key, err := loadSlotKey(byte(settingsSlot))
		if err != nil {
			return fmt.Errorf("load key for slot %d: %w", settingsSlot, err)
		}
		if err := eng.AuthenticateEV2First(byte(settingsSlot), key); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		fs, err := eng.GetFileSettings(file)
		if err != nil {
			return fmt.Errorf("get file settings: %w", err)
		}

		printKV(fmt.Sprintf("File settings: %s", settingsFile), [][2]string{
			{"FileType", fmt.Sprintf("0x%02X", fs.FileType)},
			{"FileOption", fmt.Sprintf("0x%02X", fs.FileOption)},
			{"AR1", fmt.Sprintf("0x%02X", fs.AR1)},
			{"AR2", fmt.Sprintf("0x%02X", fs.AR2)},
			{"Size", fmt.Sprintf("%d", fs.Size)},
			{"SDMEnabled", fmt.Sprintf("%t", fs.SDMEnabled)},
		})
		return nil
	},
}

var (
	changeCommMode uint8
	changeAR1      uint8
	changeAR2      uint8
)

var settingsChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "ChangeFileSettings for an application file (SDM disabled)",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := fileIDFromFlag(settingsFile)
		if err != nil {
			return err
		}

		conn, eng, err := connectAndSelect(file)
		if err != nil {
			return err
		}
		defer conn.Close()

		key, err := loadSlotKey(byte(settingsSlot))
		if err != nil {
			return fmt.Errorf("load key for slot %d: %w", settingsSlot, err)
		}
		if err := eng.AuthenticateEV2First(byte(settingsSlot), key); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		data := ntag424.BuildChangeFileSettingsData(changeCommMode, changeAR1, changeAR2, 0, 0, 0, 0, 0, 0, 0, 0)
		if err := eng.ChangeFileSettings(file, data); err != nil {
			return fmt.Errorf("change file settings: %w", err)
		}

		printSuccess("file settings updated for %s", settingsFile)
		return nil
	},
}

func init() {
	settingsCmd.PersistentFlags().StringVar(&settingsFile, "file", "ndef", "file: cc, ndef, or proprietary")
	settingsCmd.PersistentFlags().IntVar(&settingsSlot, "slot", 0, "key slot to authenticate with")

	settingsChangeCmd.Flags().Uint8Var(&changeCommMode, "comm-mode", 0, "comm mode: 0=plain, 1=mac, 3=full")
	settingsChangeCmd.Flags().Uint8Var(&changeAR1, "ar1", 0xE0, "access rights byte 1 (rw/change nibbles)")
	settingsChangeCmd.Flags().Uint8Var(&changeAR2, "ar2", 0xEE, "access rights byte 2 (read/write nibbles)")

	settingsCmd.AddCommand(settingsGetCmd, settingsChangeCmd)
	rootCmd.AddCommand(settingsCmd)
}
