package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/KyooRuss/Parking-Management/internal/server/config"
	"github.com/KyooRuss/Parking-Management/internal/server/parking"
	"github.com/KyooRuss/Parking-Management/internal/server/services"
	"github.com/KyooRuss/Parking-Management/pkg/models"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands",
	Long:  "Administrative commands that operate directly on the configured slot store",
}

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Park a vehicle in a slot",
	Run:   runAssignCommand,
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Release an occupied slot",
	Run:   runReleaseCommand,
}

var setFlagsCmd = &cobra.Command{
	Use:   "set-flags",
	Short: "Set the maintenance and reserved holds on a slot",
	Run:   runSetFlagsCommand,
}

var setCapacityCmd = &cobra.Command{
	Use:   "set-capacity",
	Short: "Set the number of slots in a category",
	Run:   runSetCapacityCommand,
}

var occupancyCmd = &cobra.Command{
	Use:   "occupancy",
	Short: "Show occupied / total per category",
	Run:   runOccupancyCommand,
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Show every slot of a category with its state",
	Run:   runGridCommand,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List the deduplicated parking log, newest first",
	Run:   runLogsCommand,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Report occupied slots missing their PARKED log entry",
	Run:   runReconcileCommand,
}

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Print the QR code for a slot",
	Run:   runQRCommand,
}

func init() {
	assignCmd.Flags().String("slot", "", "Slot ID, e.g. A5 (required)")
	assignCmd.Flags().String("category", "", "Motorcycle or Car (required)")
	assignCmd.Flags().String("vehicle-id", "", "Vehicle ID (required)")
	assignCmd.Flags().String("plate", "", "Plate number (required)")
	assignCmd.Flags().String("contact", "", "Contact number (required)")
	assignCmd.Flags().String("user-id", "", "User ID")
	assignCmd.Flags().String("user-name", "", "User display name")
	assignCmd.MarkFlagRequired("slot")
	assignCmd.MarkFlagRequired("category")
	assignCmd.MarkFlagRequired("vehicle-id")
	assignCmd.MarkFlagRequired("plate")
	assignCmd.MarkFlagRequired("contact")

	releaseCmd.Flags().String("slot", "", "Slot ID (required)")
	releaseCmd.MarkFlagRequired("slot")

	setFlagsCmd.Flags().String("slot", "", "Slot ID (required)")
	setFlagsCmd.Flags().Bool("maintenance", false, "Mark the slot under maintenance")
	setFlagsCmd.Flags().Bool("reserved", false, "Mark the slot reserved")
	setFlagsCmd.MarkFlagRequired("slot")

	setCapacityCmd.Flags().String("category", "", "Motorcycle or Car (required)")
	setCapacityCmd.Flags().Int("total", 0, "Number of slots (required)")
	setCapacityCmd.MarkFlagRequired("category")
	setCapacityCmd.MarkFlagRequired("total")

	gridCmd.Flags().String("category", "Motorcycle", "Motorcycle or Car")

	logsCmd.Flags().String("slot", "", "Only show entries for this slot")
	logsCmd.Flags().Int("limit", 50, "Maximum entries to show (0 for all)")

	qrCmd.Flags().String("slot", "", "Slot ID (required)")
	qrCmd.Flags().String("png", "", "Write a PNG to this path instead of printing")
	qrCmd.MarkFlagRequired("slot")

	adminCmd.AddCommand(
		assignCmd,
		releaseCmd,
		setFlagsCmd,
		setCapacityCmd,
		occupancyCmd,
		gridCmd,
		logsCmd,
		reconcileCmd,
		qrCmd,
	)
}

// openAdminService opens the configured store and loads it once. Admin
// commands skip the in-process side effects of the server.
func openAdminService(ctx context.Context) (*services.ParkingService, func()) {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	store, err := openStore(ctx, cfg, openFirebase(ctx, cfg))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	svc := services.NewParkingService(store, nil, nil, nil)
	if err := svc.Refresh(ctx); err != nil {
		store.Close()
		log.Fatalf("Failed to load parking state: %v", err)
	}
	return svc, func() {
		svc.Close()
		store.Close()
	}
}

func mustCategory(cmd *cobra.Command) models.Category {
	raw, _ := cmd.Flags().GetString("category")
	category, err := models.ParseCategory(raw)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return category
}

func slotFlag(cmd *cobra.Command) string {
	slotID, _ := cmd.Flags().GetString("slot")
	return strings.ToUpper(strings.TrimSpace(slotID))
}

func printResult(action string, res parking.Result, err error) {
	if err != nil {
		log.Fatalf("%s failed: %v", action, err)
	}
	if !res.Committed {
		fmt.Printf("✗ %s rejected: %s (%s)\n", action, res.Reason.Message(), res.Reason)
		return
	}
	fmt.Printf("✓ %s committed\n", action)
	if res.Slot != nil {
		fmt.Printf("Slot: %s  State: %s\n", res.Slot.SlotID, parking.DisplayState(res.Slot))
	}
	if res.LogID != "" {
		fmt.Printf("Log entry: %s\n", res.LogID)
	}
	if res.LogErr != nil {
		fmt.Printf("Warning: log entry was not written: %v\n", res.LogErr)
	}
}

func runAssignCommand(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, closeStore := openAdminService(ctx)
	defer closeStore()

	vehicleID, _ := cmd.Flags().GetString("vehicle-id")
	plate, _ := cmd.Flags().GetString("plate")
	contact, _ := cmd.Flags().GetString("contact")
	userID, _ := cmd.Flags().GetString("user-id")
	userName, _ := cmd.Flags().GetString("user-name")

	res, err := svc.Assign(ctx, slotFlag(cmd), mustCategory(cmd), parking.Vehicle{
		VehicleID: vehicleID,
		Plate:     plate,
		Contact:   contact,
		UserID:    userID,
		UserName:  userName,
	})
	printResult("Assign", res, err)
}

func runReleaseCommand(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, closeStore := openAdminService(ctx)
	defer closeStore()

	res, err := svc.Release(ctx, slotFlag(cmd))
	printResult("Release", res, err)
}

func runSetFlagsCommand(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, closeStore := openAdminService(ctx)
	defer closeStore()

	maintenance, _ := cmd.Flags().GetBool("maintenance")
	reserved, _ := cmd.Flags().GetBool("reserved")

	res, err := svc.SetFlags(ctx, slotFlag(cmd), maintenance, reserved)
	printResult("Set flags", res, err)
}

func runSetCapacityCommand(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, closeStore := openAdminService(ctx)
	defer closeStore()

	total, _ := cmd.Flags().GetInt("total")
	res, err := svc.UpdateCapacity(ctx, mustCategory(cmd), total)
	printResult("Set capacity", res, err)
}

func runOccupancyCommand(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, closeStore := openAdminService(ctx)
	defer closeStore()

	for _, occ := range svc.AllOccupancy() {
		fmt.Printf("%-12s %s\n", occ.Category, parking.Describe(occ))
	}
}

func runGridCommand(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, closeStore := openAdminService(ctx)
	defer closeStore()

	category := mustCategory(cmd)
	occ := svc.Occupancy(category)
	fmt.Printf("%s slots (%s)\n", category, parking.Describe(occ))
	fmt.Println(strings.Repeat("=", 40))
	for _, cell := range svc.Grid(category) {
		fmt.Printf("%-5s %-12s %s\n", cell.SlotID, cell.State, cell.Label)
	}
}

func runLogsCommand(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, closeStore := openAdminService(ctx)
	defer closeStore()

	limit, _ := cmd.Flags().GetInt("limit")
	logs := svc.DedupedLogs(slotFlag(cmd))
	if len(logs) == 0 {
		fmt.Println("No log entries")
		return
	}
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}

	fmt.Printf("%-20s %-5s %-7s %-12s %-20s %s\n", "TIME", "SLOT", "STATUS", "PLATE", "USER", "CONTACT")
	for _, entry := range logs {
		fmt.Printf("%-20s %-5s %-7s %-12s %-20s %s\n",
			formatTime(entry.CreatedAt),
			entry.SlotID,
			entry.Status,
			models.StringValue(entry.Plate),
			entry.DisplayName(),
			models.StringValue(entry.Contact),
		)
	}
}

func runReconcileCommand(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, closeStore := openAdminService(ctx)
	defer closeStore()

	found, err := svc.Reconcile(ctx)
	if err != nil {
		log.Fatalf("Reconcile failed: %v", err)
	}
	if len(found) == 0 {
		fmt.Println("✓ Every occupied slot has a matching PARKED entry")
		return
	}
	fmt.Printf("Found %d discrepancies:\n", len(found))
	for _, d := range found {
		fmt.Printf("  %-5s vehicle=%s reason=%s\n", d.SlotID, d.VehicleID, d.Reason)
	}
}

func runQRCommand(cmd *cobra.Command, args []string) {
	slotID := slotFlag(cmd)
	payload, err := parking.EncodeQRPayload(slotID)
	if err != nil {
		log.Fatalf("Invalid slot: %v", err)
	}

	if path, _ := cmd.Flags().GetString("png"); path != "" {
		if err := qrcode.WriteFile(payload, qrcode.Medium, 256, path); err != nil {
			log.Fatalf("Failed to write QR code: %v", err)
		}
		fmt.Printf("✓ Wrote QR code for %s to %s\n", slotID, path)
		return
	}

	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		log.Fatalf("Failed to render QR code: %v", err)
	}
	fmt.Println(qr.ToSmallString(false))
	fmt.Printf("Slot %s: %s\n", slotID, payload)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "pending"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
