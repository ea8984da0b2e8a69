// Package main is the entry point for the LibreNMS to NetBox sync tool.
package main

import "librenms-netbox-sync/cmd/nbsync/cmd"

func main() {
	cmd.Execute()
}
