package store

import (
	"context"
	"fmt"

	"homecook-api/models"
)

func sampleReviews() []models.Review {
	return []models.Review{
		{UserName: "Mei", Comment: "Tastes exactly like my grandmother's cooking.", Rating: 5},
		{UserName: "Kevin", Comment: "Generous portions, arrived warm.", Rating: 4.5},
		{UserName: "Ann", Comment: "A bit salty for me.", Rating: 3},
	}
}

func sampleMenu() []models.MenuItem {
	img := func(s string) *string { return &s }
	return []models.MenuItem{
		{Name: "Heirloom braised pork (limited)", Description: "Slow braised until it melts.", Price: 280, IsAvailable: true,
			ImageURL: img("https://images.unsplash.com/photo-1546069901-ba95155f52a7?w=100")},
		{Name: "Minced pork with pickled cucumber", Description: "Savory and made for rice.", Price: 180, IsAvailable: true,
			ImageURL: img("https://images.unsplash.com/photo-1563729781498-84225a07c1fe?w=100")},
		{Name: "Sesame oil chicken soup", Description: "Free-range chicken, slow simmered.", Price: 320, IsAvailable: true,
			ImageURL: img("https://images.unsplash.com/photo-1588147822453-433d7b884d59?w=100")},
		{Name: "Stir-fried seasonal greens", Description: "Picked the same morning.", Price: 120, IsAvailable: false},
	}
}

// SampleCookSpots are three fictional spots around Taipei
func SampleCookSpots() []models.CookSpot {
	return []models.CookSpot{
		{
			Name: "Grandma Lin's Old Flavors", Chef: "Lin Yu-chih", Cuisine: "Traditional Taiwanese",
			Description: "Slow-stewed pork with pickles, limited daily.", Rating: 4.9, PriceRange: "mid",
			Latitude: 25.0350, Longitude: 121.5650, Reviews: sampleReviews(), MenuItems: sampleMenu(),
		},
		{
			Name: "Auntie Chou's Healthy Kitchen", Chef: "Chou Wen-hua", Cuisine: "Light and healthy",
			Description: "Low-oil lunch boxes office workers love.", Rating: 4.5, PriceRange: "low",
			Latitude: 25.0478, Longitude: 121.5175, Reviews: sampleReviews(), MenuItems: sampleMenu(),
		},
		{
			Name: "Chen Family Sichuan", Chef: "Chen Li-ping", Cuisine: "Sichuan",
			Description: "Chongqing noodles and numbing hot pot.", Rating: 4.2, PriceRange: "high",
			Latitude: 25.0064, Longitude: 121.5135, Reviews: sampleReviews(), MenuItems: sampleMenu(),
		},
	}
}

// Seed inserts the sample spots when no cook spot exists yet. It reports
// how many spots were written.
func Seed(ctx context.Context, spots *SpotRepository) (int, error) {
	var count int64
	if err := spots.db.WithContext(ctx).Model(&models.CookSpot{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count cook spots: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	samples := SampleCookSpots()
	for i := range samples {
		if err := spots.Create(ctx, &samples[i]); err != nil {
			return i, err
		}
	}
	spots.log.WithField("count", len(samples)).Info("Seeded sample cook spots")
	return len(samples), nil
}
