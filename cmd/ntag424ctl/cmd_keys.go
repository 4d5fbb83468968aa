package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ntag424dna/hostdriver/ntag424"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspect or change application key slots",
}

var keysVersionSlot int

var keysVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "GetKeyVersion for a key slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, eng, err := connectAndSelect(ntag424.FileApplication)
		if err != nil {
			return err
		}
		defer conn.Close()

		key, err := loadSlotKey(0)
		if err != nil {
			return fmt.Errorf("load master key: %w", err)
		}
		if err := eng.AuthenticateEV2First(0, key); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		v, err := eng.GetKeyVersion(byte(keysVersionSlot))
		if err != nil {
			return fmt.Errorf("get key version: %w", err)
		}
		printKV("Key version", [][2]string{
			{"Slot", fmt.Sprintf("%d", keysVersionSlot)},
			{"Version", fmt.Sprintf("0x%02X", v)},
		})
		return nil
	},
}

var (
	changeSlot       int
	changeKeyVersion uint8
	changeFromStdin  bool
)

var keysChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "Change a key slot (ChangeMasterKey for slot 0, ChangeApplicationKey otherwise)",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, eng, err := connectAndSelect(ntag424.FileApplication)
		if err != nil {
			return err
		}
		defer conn.Close()

		masterKey, err := loadSlotKey(0)
		if err != nil {
			return fmt.Errorf("load master key: %w", err)
		}
		if err := eng.AuthenticateEV2First(0, masterKey); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		var newKey []byte
		if changeFromStdin {
			newKey, err = readKeyInteractive(fmt.Sprintf("New key for slot %d (32 hex chars): ", changeSlot))
		} else {
			newKey, err = loadSlotKey(byte(changeSlot))
		}
		if err != nil {
			return fmt.Errorf("resolve new key: %w", err)
		}

		if changeSlot == 0 {
			err = eng.ChangeMasterKey(newKey, changeKeyVersion)
		} else {
			oldKey, loadErr := loadSlotKey(byte(changeSlot))
			if loadErr != nil {
				return fmt.Errorf("load current key for slot %d: %w", changeSlot, loadErr)
			}
			err = eng.ChangeApplicationKey(byte(changeSlot), oldKey, newKey, changeKeyVersion)
		}
		if err != nil {
			return fmt.Errorf("change key: %w", err)
		}

		printSuccess("key slot %d changed to version 0x%02X", changeSlot, changeKeyVersion)
		return nil
	},
}

// readKeyInteractive reads one line holding a 32-character hex key
// from the terminal with echo turned off.
func readKeyInteractive(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	line := strings.TrimSpace(string(raw))
	if len(line) != 32 {
		return nil, fmt.Errorf("key must be 32 hex chars, got %d", len(line))
	}
	return hex.DecodeString(line)
}

func init() {
	keysVersionCmd.Flags().IntVar(&keysVersionSlot, "slot", 0, "key slot to query")

	keysChangeCmd.Flags().IntVar(&changeSlot, "slot", 0, "key slot to change (0 = master key)")
	keysChangeCmd.Flags().Uint8Var(&changeKeyVersion, "new-version", 1, "new key version byte")
	keysChangeCmd.Flags().BoolVar(&changeFromStdin, "key-stdin", false, "prompt for the new key interactively instead of reading it from config")

	keysCmd.AddCommand(keysVersionCmd, keysChangeCmd)
	rootCmd.AddCommand(keysCmd)
}
