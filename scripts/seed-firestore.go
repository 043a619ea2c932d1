package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/KyooRuss/Parking-Management/internal/server/parking"
	"github.com/KyooRuss/Parking-Management/internal/server/services"
	"github.com/KyooRuss/Parking-Management/internal/server/storage"
	"github.com/KyooRuss/Parking-Management/pkg/models"
)

func main() {
	// .env.production carries the Firebase credentials when present
	if err := godotenv.Load(".env.production"); err != nil {
		godotenv.Load(".env")
	}

	root := flag.String("root", "parking-management", "Firestore root collection")
	site := flag.String("site", "demo", "Site document under the root collection")
	motorcycles := flag.Int("motorcycles", 21, "Motorcycle slot total")
	cars := flag.Int("cars", 21, "Car slot total")
	occupied := flag.Int("occupied", 3, "Motorcycle slots to park a demo vehicle in")
	flag.Parse()

	if *site == "default" {
		fmt.Println("Refusing to seed the default site; pass --site=<name>")
		os.Exit(1)
	}

	credentialsPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credentialsPath == "" {
		log.Fatal("Error: FIREBASE_CREDENTIALS_PATH environment variable not set")
	}

	ctx := context.Background()
	fb, err := services.NewFirebaseService(ctx, credentialsPath)
	if err != nil {
		log.Fatalf("Error initializing Firebase: %v", err)
	}
	client, err := fb.Firestore(ctx)
	if err != nil {
		log.Fatalf("Error getting Firestore client: %v", err)
	}

	store := storage.NewFirestoreStore(client, *root, *site)
	defer store.Close()
	engine := parking.NewEngine(store, store, store)

	for category, total := range map[models.Category]int{
		models.CategoryMotorcycle: *motorcycles,
		models.CategoryCar:        *cars,
	} {
		res, err := engine.UpdateCapacity(ctx, category, total)
		if err != nil || !res.Committed {
			log.Fatalf("Error setting %s capacity: %v %s", category, err, res.Reason)
		}
	}

	parked := 0
	for i := 1; i <= *occupied; i++ {
		slotID := parking.SlotID(models.CategoryMotorcycle, i)
		res, err := engine.Assign(ctx, slotID, models.CategoryMotorcycle, parking.Vehicle{
			VehicleID: fmt.Sprintf("DEMO-%d", i),
			Plate:     fmt.Sprintf("DMO-%03d", i),
			Contact:   "555-0100",
			UserName:  "Demo Driver",
		})
		if err != nil {
			log.Fatalf("Error parking in %s: %v", slotID, err)
		}
		if !res.Committed {
			fmt.Printf("  %s skipped: %s\n", slotID, res.Reason.Message())
			continue
		}
		parked++
	}

	fmt.Println("✓ Site seeded successfully!")
	fmt.Printf("\nDetails:\n")
	fmt.Printf("  Path:        %s/%s\n", *root, *site)
	fmt.Printf("  Motorcycles: %d slots, %d parked\n", *motorcycles, parked)
	fmt.Printf("  Cars:        %d slots\n", *cars)
}
