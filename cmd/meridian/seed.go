package main

import (
	"fmt"
	"os"
	"time"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/repository"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace all data with the sample offices, clients and visits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger := loadConfig(os.Stdout)

			dtb, err := repository.NewDatabase(
				ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
			)
			if err != nil {
				return fmt.Errorf("failed to connect to DB: %w", err)
			}
			defer dtb.Close()

			repo := repository.NewRepository(dtb, logger)
			if err = repo.EnsureSchema(ctx); err != nil {
				return err
			}

			data := sampleData()
			if err = repo.Seed(ctx, data); err != nil {
				return err
			}
			logger.InfoContext(ctx, "Database seeded",
				"offices", len(data.Offices), "clients", len(data.Clients), "visits", len(data.Visits))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d offices, %d clients and %d visits\n",
				len(data.Offices), len(data.Clients), len(data.Visits))
			return err
		},
	}
}

func intPtr(v int) *int { return &v }

func sampleData() repository.SeedData {
	return repository.SeedData{
		Offices: []models.Office{
			{
				Site: models.Site{
					Name:        "Headquarters",
					Address:     "1 Market Street",
					City:        "San Francisco",
					State:       "CA",
					ZipCode:     "94105",
					Country:     "USA",
					Coordinates: models.NewCoordinates(-122.4194, 37.7749),
					Description: "Our global headquarters and innovation center",
				},
				Employees:   intPtr(1200),
				Established: intPtr(2015),
			},
			{
				Site: models.Site{
					Name:        "European Hub",
					Address:     "30 St Mary Axe",
					City:        "London",
					State:       "England",
					ZipCode:     "EC3A 8EP",
					Country:     "United Kingdom",
					Coordinates: models.NewCoordinates(-0.1276, 51.5074),
					Description: "European operations center",
				},
				Employees:   intPtr(450),
				Established: intPtr(2017),
			},
			{
				Site: models.Site{
					Name:        "Asia Pacific Office",
					Address:     "1 Raffles Place",
					City:        "Singapore",
					State:       "Singapore",
					ZipCode:     "048616",
					Country:     "Singapore",
					Coordinates: models.NewCoordinates(103.8198, 1.3521),
					Description: "Strategic hub for Asia-Pacific region",
				},
				Employees:   intPtr(380),
				Established: intPtr(2018),
			},
		},
		Clients: []models.Client{
			{
				Site: models.Site{
					Name:        "TechCorp Global",
					Address:     "350 Fifth Avenue",
					City:        "New York",
					State:       "NY",
					ZipCode:     "10118",
					Country:     "USA",
					Coordinates: models.NewCoordinates(-74.0060, 40.7128),
					Description: "Enterprise software solutions provider",
				},
				Industry:         "Technology",
				PartnershipSince: intPtr(2016),
			},
			{
				Site: models.Site{
					Name:        "FinanceFirst Ltd",
					Address:     "Taunusanlage 12",
					City:        "Frankfurt",
					State:       "Hesse",
					ZipCode:     "60325",
					Country:     "Germany",
					Coordinates: models.NewCoordinates(8.6821, 50.1109),
					Description: "Leading financial services platform",
				},
				Industry:         "Finance",
				PartnershipSince: intPtr(2017),
			},
			{
				Site: models.Site{
					Name:        "RetailMax",
					Address:     "101 Rue de Rivoli",
					City:        "Paris",
					State:       "Ile-de-France",
					ZipCode:     "75001",
					Country:     "France",
					Coordinates: models.NewCoordinates(2.3522, 48.8566),
					Description: "E-commerce solutions provider",
				},
				Industry:         "Retail",
				PartnershipSince: intPtr(2018),
			},
		},
		Visits: []repository.SeedVisit{
			{
				Office: 0,
				Client: 0,
				Visit: models.Visit{
					VisitDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
					Purpose:   "Quarterly Business Review",
					Notes:     "Discussed expansion plans",
					Attendees: []string{"John Smith", "Jane Doe"},
				},
			},
			{
				Office: 1,
				Client: 1,
				Visit: models.Visit{
					VisitDate: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
					Purpose:   "Product Demo",
					Notes:     "Showcased new features",
					Attendees: []string{"Alice Johnson", "Bob Williams"},
				},
			},
		},
	}
}
