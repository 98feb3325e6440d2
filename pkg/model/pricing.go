package model

import (
	"fmt"
	"math"
	"time"
)

const night = 24 * time.Hour

type Quote struct {
	Nights        int
	PricePerNight float64
	Total         float64
	// AmountMinor is Total in the currency's minor unit (cents, paise).
	AmountMinor int64
	Currency    string
}

// NightsBetween rounds any partial day up so a stay is never undercharged.
func NightsBetween(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	return int((d + night - 1) / night)
}

func QuoteStay(pricePerNight float64, checkIn, checkOut time.Time, currency string) (Quote, error) {
	if pricePerNight <= 0 || math.IsNaN(pricePerNight) || math.IsInf(pricePerNight, 0) {
		return Quote{}, fmt.Errorf("price per night must be positive, got %v", pricePerNight)
	}
	nights := NightsBetween(checkIn, checkOut)
	if nights < 1 {
		return Quote{}, fmt.Errorf("check-out must be after check-in")
	}

	total := roundCents(pricePerNight * float64(nights))
	return Quote{
		Nights:        nights,
		PricePerNight: pricePerNight,
		Total:         total,
		AmountMinor:   int64(math.Round(total * 100)),
		Currency:      currency,
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
