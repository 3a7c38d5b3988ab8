// Package rating computes the rolled-up book rating from its reviews.
package rating

import "github.com/azaliaz/bookverse/internal/domain/models"

// Average returns the arithmetic mean of the review ratings, 0 for none.
func Average(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}
