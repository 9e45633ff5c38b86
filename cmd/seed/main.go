// Command seed replaces the database contents with a small demo data set:
// one login, two drivers, their vehicles and a few payments.
package main

import (
	"context"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/roadblock/internal/config"
	"github.com/Skotchmaster/roadblock/internal/es"
	"github.com/Skotchmaster/roadblock/internal/models"
	"github.com/Skotchmaster/roadblock/internal/repo"
	"github.com/Skotchmaster/roadblock/internal/service"
	pkgdb "github.com/Skotchmaster/roadblock/pkg/db"
	"github.com/Skotchmaster/roadblock/pkg/logging"
)

type seedConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Search      config.Search
}

type seedVehicle struct {
	vehicle  models.Vehicle
	driver   models.Driver
	payments []string
}

func demoData() []seedVehicle {
	dob := time.Date(1998, time.April, 14, 0, 0, 0, 0, time.UTC)
	driver := func(name, licence string) models.Driver {
		return models.Driver{
			FullName:      name,
			LicenseNumber: licence,
			NationalID:    "70-278724-G87",
			DOB:           &dob,
			Phone:         "+263779528194",
			Defensive:     "0893714GT6",
			Medical:       "EXP 02-10-2023",
			LicenceClass:  "2",
			LicenceYear:   2018,
		}
	}
	vehicle := func(plate string) models.Vehicle {
		return models.Vehicle{
			PlateNumber:  plate,
			MakeAndModel: "Land Rover, Defender",
			Year:         2018,
			Colour:       "White",
			Weight:       2000,
			NetWeight:    1500,
			FinesDue:     decimal.RequireFromString("123232.23"),
		}
	}
	return []seedVehicle{
		{vehicle: vehicle("PBS492"), driver: driver("John Moyo", "472629HD"), payments: []string{"123.23", "83.23"}},
		{vehicle: vehicle("PBS498"), driver: driver("Peter Dube", "462729PB"), payments: []string{"123.23", "53.23"}},
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("notice: .env file not loaded: %v, using system environment variables", err)
	}
	var cfg seedConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	ctx := logging.IntoContext(context.Background(), logger)

	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pkgdb.Close(db)

	r := repo.New(db)
	if err := r.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	vehicles := &service.VehicleService{Repo: r}
	if cfg.Search.Enabled() {
		client, err := es.NewClient(ctx, cfg.Search)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		index := es.NewVehicleIndex(client, cfg.Search.Index)
		if err := index.EnsureIndex(ctx); err != nil {
			log.Fatalf("elasticsearch index: %v", err)
		}
		vehicles.Index = index
	}

	if err := seed(ctx, r, vehicles); err != nil {
		log.Fatalf("seed: %v", err)
	}

	n, err := vehicles.ReindexAll(ctx)
	if err != nil {
		log.Fatalf("reindex: %v", err)
	}
	logger.Info("database_seeded", "indexed", n)
}

func seed(ctx context.Context, r *repo.GormRepo, vehicles *service.VehicleService) error {
	if err := r.Reset(ctx); err != nil {
		return err
	}

	users := &service.AuthService{Repo: r}
	if _, err := users.Create(ctx, "test_user", "default@8901"); err != nil {
		return err
	}

	for _, s := range demoData() {
		v, d := s.vehicle, s.driver
		if err := vehicles.CreateWithDriver(ctx, &v, &d); err != nil {
			return err
		}
		for _, amount := range s.payments {
			if _, err := vehicles.RecordPayment(ctx, v.ID, decimal.RequireFromString(amount)); err != nil {
				return err
			}
		}
	}
	return nil
}
