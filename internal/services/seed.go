package services

import (
	"context"
	"time"

	"example.com/pacific/relief/internal/cache"
	"example.com/pacific/relief/internal/models"
	"example.com/pacific/relief/internal/repositories"

	"github.com/rs/zerolog/log"
)

// DemoSeedLock names the lock row taken while seeding demo data
const DemoSeedLock = "demo"

type seedRequest struct {
	event        int
	category     models.Category
	urgency      models.Urgency
	location     string
	description  string
	status       models.RequestStatus
	assigneeName string
	assigneeTeam string
}

var seedEvents = []models.Event{
	{
		Name:   "Vanuatu Earthquake Response - Port Vila (Dec 2024)",
		Region: "Vanuatu",
		Status: models.EventStatusActive,
	},
	{
		Name:   "PNG Enga Landslide Response - Mulitaka (May 2024)",
		Region: "Papua New Guinea",
		Status: models.EventStatusActive,
	},
	{
		Name:   "Vanuatu Cyclone Lola Early Recovery - Sanma and Penama (2024)",
		Region: "Vanuatu",
		Status: models.EventStatusPlanned,
	},
}

var seedRequests = []seedRequest{
	{0, models.CategoryMedical, models.UrgencyHigh, "Port Vila",
		"Support trauma and emergency care for patients transferred from damaged facilities.",
		models.RequestStatusAssigned, "Dr. L. Iekau", "Ministry of Health Surge Team"},
	{0, models.CategoryShelter, models.UrgencyHigh, "Efate Island",
		"Temporary shelter kits requested for households displaced after the 7.3 earthquake.",
		models.RequestStatusInProgress, "M. Tari", "Shelter Cluster Field Unit"},
	{0, models.CategoryWater, models.UrgencyMedium, "Port Vila",
		"Restore safe water access for communities with damaged pipelines and storage points.",
		models.RequestStatusNew, "A. Ravo", "WASH Infrastructure Team"},
	{0, models.CategoryTransport, models.UrgencyMedium, "Port Vila",
		"Fuel and transport support needed for medical evacuation and relief cargo movement.",
		models.RequestStatusNew, "K. Bani", "Logistics Access Cell"},
	{1, models.CategoryShelter, models.UrgencyHigh, "Mulitaka, Enga Province",
		"Emergency shelter materials required for families displaced by landslide debris.",
		models.RequestStatusInProgress, "P. Timi", "IOM Site Support Team"},
	{1, models.CategoryFood, models.UrgencyHigh, "Mulitaka, Enga Province",
		"Immediate food distribution requested while local supply routes remain disrupted.",
		models.RequestStatusAssigned, "R. Kumai", "Food Security Distribution Team"},
	{1, models.CategoryWater, models.UrgencyHigh, "Mulitaka, Enga Province",
		"Safe drinking water and household purification supplies needed for temporary sites.",
		models.RequestStatusNew, "S. Yaka", "WASH Emergency Team"},
	{1, models.CategoryMedical, models.UrgencyHigh, "Porgera-Paiela District",
		"Mobile health team support needed for trauma, wound care, and infection prevention.",
		models.RequestStatusNew, "N. Tuke", "Provincial Health Mobile Unit"},
	{1, models.CategoryTransport, models.UrgencyMedium, "Wabag",
		"Heavy equipment and road access support required to improve aid delivery corridors.",
		models.RequestStatusNew, "J. Kon", "Road Access and Transport Team"},
	{2, models.CategoryShelter, models.UrgencyMedium, "Sola, Vanua Lava",
		"Roofing materials and weatherproof shelter repairs requested during early recovery.",
		models.RequestStatusNew, "C. Moli", "Shelter Recovery Group"},
	{2, models.CategoryFood, models.UrgencyMedium, "Northeast Malekula",
		"Community food assistance requested for households with crop and garden losses.",
		models.RequestStatusNew, "T. Sovu", "Community Food Support Team"},
	{2, models.CategoryWater, models.UrgencyMedium, "Penama Province",
		"Water system repairs and storage tanks needed after cyclone damage to infrastructure.",
		models.RequestStatusNew, "D. Iaris", "Rural Water Repair Unit"},
}

// Seeder loads demo data into an empty database
type Seeder struct {
	store *repositories.Store
	cache Cache
	now   func() time.Time
}

// NewSeeder creates a new seeder. cache may be nil.
func NewSeeder(store *repositories.Store, cache Cache) *Seeder {
	return &Seeder{
		store: store,
		cache: cache,
		now:   timestampNow,
	}
}

// SeedIfEmpty inserts the demo events and requests when no event exists.
// It reports whether anything was inserted. Concurrent callers are
// serialized on the seed lock row, so at most one of them seeds, and the
// rows become visible all at once or not at all.
func (s *Seeder) SeedIfEmpty(ctx context.Context) (bool, error) {
	seeded := false

	err := s.store.WithTransaction(ctx, func(tx *repositories.Store) error {
		now := s.now()
		if err := tx.SeedLocks.Acquire(ctx, DemoSeedLock, now); err != nil {
			return err
		}

		count, err := tx.Events.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		events := make([]models.Event, len(seedEvents))
		for i, e := range seedEvents {
			e.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
			e.UpdatedAt = e.CreatedAt
			events[i] = e
		}
		if err := tx.Events.CreateBatch(ctx, events); err != nil {
			return err
		}

		requests := make([]models.Request, len(seedRequests))
		for i, r := range seedRequests {
			name, team := r.assigneeName, r.assigneeTeam
			ts := now.Add(time.Duration(i) * time.Millisecond)
			requests[i] = models.Request{
				EventID:      events[r.event].ID,
				Category:     r.category,
				Urgency:      r.urgency,
				Location:     r.location,
				Description:  r.description,
				Status:       r.status,
				AssigneeName: &name,
				AssigneeTeam: &team,
				CreatedAt:    ts,
				UpdatedAt:    ts,
			}
		}
		if err := tx.Requests.CreateBatch(ctx, requests); err != nil {
			return err
		}

		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if seeded {
		log.Info().
			Int("events", len(seedEvents)).
			Int("requests", len(seedRequests)).
			Msg("Seeded demo data")

		if s.cache != nil && s.cache.Enabled() {
			if err := s.cache.Invalidate(ctx, cache.GetEventsVersionKey()); err != nil {
				log.Warn().Err(err).Msg("Cache invalidation after seeding failed")
			}
			if err := s.cache.Invalidate(ctx, cache.GetRequestsVersionKey()); err != nil {
				log.Warn().Err(err).Msg("Cache invalidation after seeding failed")
			}
		}
	} else {
		log.Debug().Msg("Events present, skipping demo seed")
	}

	return seeded, nil
}
