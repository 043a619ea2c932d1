package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KyooRuss/Parking-Management/internal/client/api"
	"github.com/KyooRuss/Parking-Management/internal/client/config"
	"github.com/KyooRuss/Parking-Management/internal/client/ui"
	"github.com/KyooRuss/Parking-Management/pkg/models"
	"github.com/KyooRuss/Parking-Management/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "parking",
	Short: "Parking Management client - park and leave by slot code",
	Long:  "CLI for drivers: scan or type a slot code to park or leave, and check occupancy",
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update the saved user profile",
	Run:   runProfile,
}

var parkCmd = &cobra.Command{
	Use:   "park [slot-code]",
	Short: "Park in a slot (slot id or scanned QR payload)",
	Args:  cobra.ExactArgs(1),
	Run:   runPark,
}

var leaveCmd = &cobra.Command{
	Use:   "leave [slot-code]",
	Short: "Leave a slot",
	Args:  cobra.ExactArgs(1),
	Run:   runLeave,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show occupancy, or the slot grid with --category",
	Run:   runStatus,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent parking activity",
	Run:   runLogs,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersion("parking"))
	},
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "Server URL (saved with 'profile --server')")

	profileCmd.Flags().String("user-id", "", "User ID")
	profileCmd.Flags().String("user-name", "", "Display name")
	profileCmd.Flags().String("image-url", "", "Profile image URL")
	profileCmd.Flags().String("token", "", "Identity token from the login provider")
	profileCmd.Flags().Bool("clear", false, "Forget the saved profile and vehicle")

	parkCmd.Flags().String("vehicle-id", "", "Vehicle ID (remembered)")
	parkCmd.Flags().String("plate", "", "Plate number (remembered)")
	parkCmd.Flags().String("contact", "", "Contact number (remembered)")

	statusCmd.Flags().String("category", "", "Show the slot grid for Motorcycle or Car")
	statusCmd.Flags().String("slot", "", "Show the detail of one slot")

	logsCmd.Flags().String("slot", "", "Only show entries for this slot")
	logsCmd.Flags().Int("limit", 20, "Maximum entries to show (0 for all)")

	rootCmd.AddCommand(profileCmd, parkCmd, leaveCmd, statusCmd, logsCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Println(ui.ErrorStyle.Render(fmt.Sprintf("Error: "+format, args...)))
	os.Exit(1)
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fail("%v", err)
	}
	return cfg
}

func newClient(cmd *cobra.Command, cfg *config.Config) *api.Client {
	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = cfg.ServerURL
	}
	return api.NewClient(strings.TrimRight(server, "/"), cfg.Token)
}

func runProfile(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if reset, _ := cmd.Flags().GetBool("clear"); reset {
		if err := config.Delete(); err != nil && !os.IsNotExist(err) {
			fail("%v", err)
		}
		fmt.Println(ui.SuccessStyle.Render("✓ Profile cleared"))
		return
	}

	changed := false
	for flag, field := range map[string]*string{
		"server":    &cfg.ServerURL,
		"user-id":   &cfg.UserID,
		"user-name": &cfg.UserName,
		"image-url": &cfg.UserImageURL,
		"token":     &cfg.Token,
	} {
		if cmd.Flags().Changed(flag) {
			*field, _ = cmd.Flags().GetString(flag)
			changed = true
		}
	}
	if changed {
		if err := cfg.Save(); err != nil {
			fail("%v", err)
		}
		fmt.Println(ui.SuccessStyle.Render("✓ Profile saved"))
	}

	fmt.Println(ui.TitleStyle.Render("Parking Profile"))
	fmt.Printf("Server:   %s\n", cfg.ServerURL)
	fmt.Printf("User ID:  %s\n", valueOr(cfg.UserID, "-"))
	fmt.Printf("Name:     %s\n", valueOr(cfg.UserName, "-"))
	fmt.Printf("Token:    %s\n", map[bool]string{true: "set", false: "not set"}[cfg.Token != ""])
	fmt.Printf("Vehicle:  %s  Plate: %s  Contact: %s\n",
		valueOr(cfg.Get(config.PrefVehicleID), "-"),
		valueOr(cfg.Get(config.PrefPlate), "-"),
		valueOr(cfg.Get(config.PrefContact), "-"),
	)
}

func runPark(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	for flag, key := range map[string]string{
		"vehicle-id": config.PrefVehicleID,
		"plate":      config.PrefPlate,
		"contact":    config.PrefContact,
	} {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			cfg.Set(key, strings.TrimSpace(v))
		}
	}

	req := models.ScanRequest{
		QR:           args[0],
		Action:       "park",
		VehicleID:    cfg.Get(config.PrefVehicleID),
		Plate:        cfg.Get(config.PrefPlate),
		Contact:      cfg.Get(config.PrefContact),
		UserID:       cfg.UserID,
		UserName:     cfg.UserName,
		UserImageURL: cfg.UserImageURL,
	}
	if req.VehicleID == "" || req.Plate == "" || req.Contact == "" {
		fail("vehicle id, plate and contact are required; pass them once with --vehicle-id, --plate and --contact")
	}

	resp, err := newClient(cmd, cfg).Scan(req)
	if err != nil {
		fail("%v", err)
	}
	fmt.Println(ui.RenderTransition("Parked", resp))

	if resp.Committed {
		if err := cfg.Save(); err != nil {
			fmt.Println(ui.WarningStyle.Render("Warning: failed to remember vehicle: " + err.Error()))
		}
	}
}

func runLeave(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	resp, err := newClient(cmd, cfg).Scan(models.ScanRequest{QR: args[0], Action: "leave"})
	if err != nil {
		fail("%v", err)
	}
	fmt.Println(ui.RenderTransition("Left", resp))
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	client := newClient(cmd, cfg)

	if slotID, _ := cmd.Flags().GetString("slot"); slotID != "" {
		detail, err := client.Slot(strings.ToUpper(slotID))
		if err != nil {
			fail("%v", err)
		}
		fmt.Println(ui.TitleStyle.Render("Slot " + detail.SlotID))
		fmt.Printf("Category: %s\n", detail.Category)
		fmt.Printf("State:    %s\n", detail.State)
		if detail.State == models.DisplayOccupied {
			fmt.Printf("User:     %s\n", detail.User)
			fmt.Printf("Plate:    %s\n", detail.Plate)
			fmt.Printf("Contact:  %s\n", detail.Contact)
			if detail.TimeIn != nil {
				fmt.Printf("Since:    %s\n", detail.TimeIn.Local().Format("2006-01-02 15:04"))
			}
		}
		return
	}

	if raw, _ := cmd.Flags().GetString("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			fail("%v", err)
		}
		cells, err := client.Grid(category)
		if err != nil {
			fail("%v", err)
		}
		fmt.Println(ui.TitleStyle.Render(string(category) + " slots"))
		fmt.Println(ui.RenderGrid(cells, 5))
		return
	}

	occ, err := client.Occupancy()
	if err != nil {
		fail("%v", err)
	}
	fmt.Print(ui.RenderOccupancy(occ))
}

func runLogs(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	slotID, _ := cmd.Flags().GetString("slot")
	limit, _ := cmd.Flags().GetInt("limit")

	logs, err := newClient(cmd, cfg).Logs(strings.ToUpper(slotID))
	if err != nil {
		fail("%v", err)
	}
	if len(logs) == 0 {
		fmt.Println(ui.HelpStyle.Render("No parking activity yet"))
		return
	}
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}

	fmt.Println(ui.TitleStyle.Render("Parking Activity"))
	for _, entry := range logs {
		when := "pending"
		if entry.CreatedAt != nil {
			when = entry.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  %-4s %-7s %-10s %s\n", when, entry.SlotID, entry.Status, models.StringValue(entry.Plate), entry.DisplayName())
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
