package catalog

import (
	"fmt"
	"math"
)

// Review is a product review.
type Review struct {
	ID      string  `json:"id"`
	User    string  `json:"user"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
	Date    string  `json:"date"`
}

// RatingBucket counts the reviews at one star level.
type RatingBucket struct {
	Rating     int
	Count      int
	Percentage float64
}

// AverageRating returns the mean rating, 0 without reviews.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range reviews {
		sum += r.Rating
	}
	return sum / float64(len(reviews))
}

// RatingDistribution buckets reviews by whole star, highest first.
func RatingDistribution(reviews []Review, maxRating int) []RatingBucket {
	out := make([]RatingBucket, maxRating)
	for i := range out {
		out[i].Rating = maxRating - i
	}
	if len(reviews) == 0 {
		return out
	}
	for _, r := range reviews {
		idx := maxRating - int(math.Floor(r.Rating))
		if idx >= 0 && idx < len(out) {
			out[idx].Count++
		}
	}
	for i := range out {
		out[i].Percentage = float64(out[i].Count) / float64(len(reviews)) * 100
	}
	return out
}

// FormatReviewCount renders a review count for display.
func FormatReviewCount(n int) string {
	switch n {
	case 0:
		return "No reviews"
	case 1:
		return "1 review"
	default:
		return fmt.Sprintf("%d reviews", n)
	}
}
