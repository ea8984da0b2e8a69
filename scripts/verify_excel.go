//go:build ignore
// +build ignore

// This script writes sample run reports (Excel and HTML) for manual checks.
// Run with: go run scripts/verify_excel.go
package main

import (
	"fmt"
	"os"
	"time"

	"librenms-netbox-sync/internal/model"
	"librenms-netbox-sync/internal/report/excel"
	"librenms-netbox-sync/internal/report/html"
)

func main() {
	result := createSampleData()

	tz, _ := time.LoadLocation("Europe/Berlin")

	if err := excel.NewWriter(tz).Write(result, "sample_sync_report.xlsx"); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating Excel report: %v\n", err)
		os.Exit(1)
	}
	if err := html.NewWriter(tz, "").Write(result, "sample_sync_report.html"); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating HTML report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Sample reports generated:")
	fmt.Println("   sample_sync_report.xlsx")
	fmt.Println("   sample_sync_report.html")
	fmt.Printf("   %d devices: %d created, %d matched, %d skipped\n",
		result.Summary.TotalDevices,
		result.Summary.CreatedDevices,
		result.Summary.MatchedDevices,
		result.Summary.SkippedDevices,
	)
}

func createSampleData() *model.RunResult {
	started := time.Now().Add(-42 * time.Second)
	result := model.NewRunResult(started)
	result.CatalogSize = 4127
	result.Version = "dev"

	result.Add(&model.Outcome{
		SourceID:          "1",
		Name:              "nas-01",
		Vendor:            "Synology",
		Model:             "DS420+",
		State:             model.StateCreated,
		DeviceTypeSlug:    "ds420-plus",
		DeviceTypeID:      17,
		DeviceID:          301,
		InterfacesCreated: 3,
		AddressesCreated:  2,
		PrimaryIPAssigned: true,
	})
	result.Add(&model.Outcome{
		SourceID:       "2",
		Name:           "core-sw-01",
		Vendor:         "Cisco",
		Model:          "C9300-48P",
		State:          model.StateMatched,
		DeviceTypeSlug: "c9300-48p",
		DeviceTypeID:   4,
		DeviceID:       12,
	})
	result.Add(&model.Outcome{
		SourceID:          "3",
		Name:              "edge-fw",
		Vendor:            "Contoso",
		Model:             "FW-9000",
		State:             model.StateCreated,
		DeviceTypeSlug:    "generic",
		DeviceTypeID:      1,
		DeviceID:          302,
		InterfacesCreated: 8,
	})

	skipped := &model.Outcome{SourceID: "4", Name: "lab-box", Vendor: "Acme", Model: "X1"}
	skipped.Skipped(model.ReasonNoDeviceType, model.StepResolveType,
		fmt.Errorf("no device type for vendor %q model %q", "Acme", "X1"))
	result.Add(skipped)

	invalid := &model.Outcome{SourceID: "5"}
	invalid.Skipped(model.ReasonInvalid, model.StepValidate, fmt.Errorf("device has no hostname"))
	result.Add(invalid)

	result.Finalize(time.Now())
	return result
}
