//go:build ignore
// +build ignore

// This script prints the contents of a run report for verification.
// Run with: go run scripts/read_excel.go [report.xlsx]
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

func main() {
	path := "sample_sync_report.xlsx"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer f.Close()

	fmt.Println("📊 Sheets:", f.GetSheetList())
	fmt.Println()

	printSection("Summary")
	rows, _ := f.GetRows("Summary")
	for _, row := range rows {
		if len(row) >= 2 && (row[0] != "" || row[1] != "") {
			fmt.Printf("  %-20s %s\n", row[0], row[1])
		}
	}
	fmt.Println()

	for _, sheet := range []string{"Devices", "Skipped"} {
		printSection(sheet)
		rows, err := f.GetRows(sheet)
		if err != nil {
			fmt.Println("  Error:", err)
			continue
		}
		for i, row := range rows {
			fmt.Printf("  %s\n", strings.Join(row, " | "))
			if i == 0 {
				fmt.Println("  " + strings.Repeat("-", 60))
			}
		}
		fmt.Println()
	}

	fmt.Println("✅ Report read successfully")
	fmt.Printf("   Open %s in Excel or LibreOffice to check the styling\n", path)
}

func printSection(title string) {
	fmt.Println("═══════════════════════════════════════")
	fmt.Println("  " + title)
	fmt.Println("═══════════════════════════════════════")
}
