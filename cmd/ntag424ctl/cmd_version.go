package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntag424dna/hostdriver/ntag424"
)

var tagVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Read hardware/software identification via the GetVersion diagnostic",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connectOnly()
		if err != nil {
			return err
		}
		defer conn.Close()

		eng := ntag424.New(conn)
		v, err := eng.GetVersion()
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}

		printKV("Tag version", [][2]string{
			{"HW vendor/type/subtype", fmt.Sprintf("%02X/%02X/%02X", v.HWVendorID, v.HWType, v.HWSubType)},
			{"HW version", fmt.Sprintf("%d.%d", v.HWMajorVer, v.HWMinorVer)},
			{"SW vendor/type/subtype", fmt.Sprintf("%02X/%02X/%02X", v.SWVendorID, v.SWType, v.SWSubType)},
			{"SW version", fmt.Sprintf("%d.%d", v.SWMajorVer, v.SWMinorVer)},
			{"UID", hexStr(v.UID)},
			{"Batch no.", hexStr(v.BatchNo)},
			{"Production", fmt.Sprintf("20%02X wk%d", v.ProdYear, v.ProdWeek)},
		})
		return nil
	},
}

var diagSlots []int

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Try a key against several key slots to locate which one it belongs to",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, eng, err := connectAndSelect(ntag424.FileApplication)
		if err != nil {
			return err
		}
		defer conn.Close()

		key, err := loadSlotKey(0)
		if err != nil {
			return fmt.Errorf("load key: %w", err)
		}

		slots := make([]byte, len(diagSlots))
		for i, s := range diagSlots {
			slots[i] = byte(s)
		}

		results := eng.DiagnoseAuthSlots(key, slots)
		t := newTable("Auth slot diagnostics")
		t.AppendHeader(headerRow("Slot", "Success", "Kind", "SW"))
		for _, r := range results {
			sw := ""
			if !r.Success {
				sw = fmt.Sprintf("0x%04X", r.SW)
			}
			t.AppendRow(dataRow(fmt.Sprintf("%d", r.Slot), fmt.Sprintf("%t", r.Success), r.Kind.String(), sw))
		}
		t.Render()
		return nil
	},
}

func init() {
	diagCmd.Flags().IntSliceVar(&diagSlots, "slots", []int{0, 1, 2, 3, 4}, "key slots to try")
	rootCmd.AddCommand(tagVersionCmd, diagCmd)
}
