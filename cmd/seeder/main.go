package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/poiesic/strata"
	"github.com/poiesic/strata/config"
	"github.com/poiesic/strata/core"
)

var descriptions = []string{
	"Clean drinking water for a mountain village that walks two hours to the nearest well.",
	"Solar panels for the rural clinic so vaccines stay cold through the night.",
	"Textbooks and desks for a primary school rebuilt after the flood.",
	"Wheelchairs for veterans waiting months for public assistance.",
	"A mobile library van that visits farming towns every weekend.",
	"Seeds and tools for a community garden on an abandoned parking lot.",
	"Emergency shelter blankets for families displaced by the wildfire.",
	"Bicycles for nurses who cover remote districts on foot.",
	"Laptops for a coding club that meets in the public library.",
	"Repairs to the roof of the only orphanage in the valley.",
	"Hearing aids for children whose families cannot afford them.",
	"A fishing boat to replace the one the storm destroyed.",
	"Training for volunteer firefighters in the coastal towns.",
	"Musical instruments for the youth orchestra's first tour.",
	"Warm winter coats for students walking to school in the snow.",
	"A water pump and pipes to irrigate the cooperative's rice fields.",
	"Surgery for a rescue dog hit by a car last week.",
	"Sanitary kits so girls do not miss school every month.",
	"Rebuilding the village bridge washed away by the river.",
	"Glasses for elderly residents of the care home.",
	"Stock for a bakery run by refugees who just arrived.",
	"Uniforms and balls for the girls' football league.",
	"A ramp and accessible bathroom for the community center.",
	"Beehives to restore pollinators to the orchard valley.",
	"Art supplies for the children's ward at the hospital.",
	"A well, a tank and a filter for the school kitchen.",
	"Ambulance fuel for the district's only emergency vehicle.",
	"Tree saplings to replant the hillside after the landslide.",
	"Recording equipment for an oral history of the old harbor.",
	"Food parcels for families during the long dry season.",
}

var firstNames = []string{"Amara", "Bao", "Carmen", "Dmitri", "Esi", "Farid", "Grete", "Hiro", "Ines", "Jonas"}

var categories = []string{"water", "health", "education", "environment", "community", "animals"}

var (
	seedFileName = flag.String("src", "", "file of campaign descriptions, one per line")
	configFile   = flag.String("config", "", "YAML configuration file")
	dataDir      = flag.String("data", "./data", "local store directory, ignored with -config")
	userCount    = flag.Int("users", 5, "number of demo users")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				if !yield(line) {
					return
				}
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// titleOf returns the first few words of a description.
func titleOf(description string) string {
	words := strings.Fields(strings.TrimRight(description, "."))
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, " ")
}

func seedUsers(ctx context.Context, db *strata.Database, n int) ([]*core.User, error) {
	users := make([]*core.User, 0, n)
	for i := range n {
		name := firstNames[i%len(firstNames)]
		u := &core.User{
			FirstName:    name,
			LastName:     "Demo",
			PasswordHash: "!",
			Email:        fmt.Sprintf("%s.%d@example.com", strings.ToLower(name), i),
		}
		if err := db.SaveUser(ctx, u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// seedCampaigns stores one campaign per line, spread over users.
func seedCampaigns(ctx context.Context, db *strata.Database, users []*core.User, source iter.Seq[string]) (int, error) {
	count := 0
	now := time.Now().UTC()
	for line := range source {
		goal := (rand.IntN(50) + 1) * 100
		c := &core.Campaign{
			Title:                    titleOf(line),
			Description:              line,
			UserID:                   users[count%len(users)].ID,
			Goal:                     goal,
			AmountReached:            rand.IntN(goal),
			CategoryID:               categories[count%len(categories)],
			CountryID:                1,
			CurrencyCode:             "USD",
			CurrencySymbol:           "$",
			CampaignTypeID:           1,
			LastContributionDatetime: now.Add(-time.Duration(rand.IntN(720)) * time.Hour).Format(core.TimestampLayout),
		}
		if err := db.SaveCampaign(ctx, c, nil); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func main() {
	var (
		cfg *config.Config
		err error
	)
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
		if err != nil {
			panic(err)
		}
	} else {
		cfg = config.NewConfig(config.WithLocalStorage(*dataDir))
	}

	ctx := context.Background()
	db, err := strata.NewDatabase(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	// Determine source of seed data
	var source iter.Seq[string]
	if *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(descriptions)
	}

	users, err := seedUsers(ctx, db, max(*userCount, 1))
	if err != nil {
		panic(err)
	}
	count, err := seedCampaigns(ctx, db, users, source)
	if err != nil {
		panic(err)
	}
	slog.Info("seeded", "users", len(users), "campaigns", count)
}
