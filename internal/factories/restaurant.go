package factories

import (
	"math"

	"github.com/lucsky/cuid"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

var (
	allCuisines = []string{"Italian", "Cafe", "Indian", "American", "Japanese", "Mexican", "Chinese",
		"Thai", "Vietnamese", "Greek", "French", "Mediterranean", "Fast Food", "Street Food", "Homemade"}
	deliveryPlatforms = []models.Platform{models.PlatformDoorDash, models.PlatformUberEats, models.PlatformGrubhub}
)

// urbanRadiusKm bounds how far restaurants are placed from the city centre.
const urbanRadiusKm = 8.0

func (f *Factory) CreateRestaurant(cfg models.SimulationConfig, center models.Location) *models.Restaurant {
	latRange := urbanRadiusKm / 111.0
	lonRange := latRange / math.Cos(center.Lat*math.Pi/180.0)

	return &models.Restaurant{
		ID:    cuid.New(),
		Name:  f.fake.Company().Name(),
		Phone: f.fake.Phone().Number(),
		Town:  f.fake.Address().City(),
		Location: models.Location{
			Lat: center.Lat + (f.rng.Float64()*2-1)*latRange,
			Lon: center.Lon + (f.rng.Float64()*2-1)*lonRange,
		},
		Cuisines:            f.cuisines(),
		ManagerID:           cuid.New(),
		GhostKitchenEnabled: true,
		GhostKitchen: models.GhostKitchenSettings{
			MaxOrders:            cfg.MaxOrders,
			Platforms:            f.platforms(),
			AutoAccept:           true,
			MinPrepTime:          cfg.MinPrepTime,
			PackagingCost:        math.Round((0.35+f.rng.Float64()*0.55)*100) / 100,
			AutoDisableThreshold: cfg.AutoDisablePct,
		},
	}
}

func (f *Factory) cuisines() []string {
	n := f.rng.Intn(3) + 1
	picked := make([]string, 0, n)
	for _, i := range f.rng.Perm(len(allCuisines))[:n] {
		picked = append(picked, allCuisines[i])
	}
	return picked
}

// platforms picks a non-empty subset of the delivery platforms, in a stable order.
func (f *Factory) platforms() []models.Platform {
	var out []models.Platform
	for _, p := range deliveryPlatforms {
		if f.rng.Float64() < 0.7 {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = append(out, deliveryPlatforms[f.rng.Intn(len(deliveryPlatforms))])
	}
	return out
}
