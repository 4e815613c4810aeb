package flow

import (
	"strings"
	"time"
)

// Nightly rates in COP for a couple, per dome.
var domoNightlyRate = map[string]int64{
	"Antares":  650000, // nido de amor con jacuzzi
	"Polaris":  550000, // amplio con sofá cama, admite huéspedes extra
	"Sirius":   450000,
	"Centaury": 450000,
}

const (
	defaultNightlyRate = 450000
	extraGuestPerNight = 100000 // Polaris only, above two guests
)

// Additional service prices, matched by substring against the accumulated
// extras text.
var servicePrices = []struct {
	match string
	price int64
}{
	{"masaje", 90000}, // per person; doubled below for couples
	{"decoracion", 60000},
	{"decoración", 60000},
	{"velero", 150000},
	{"lancha", 80000},
	{"montecillo", 50000},
	{"pozo", 70000},
	{"azul", 70000},
}

// Quote computes the total price for a stay: nightly dome rate times nights,
// plus Polaris' extra-guest surcharge, plus any additional services detected
// in the extras text.
func Quote(domo string, guests int, entrada, salida time.Time, extras string) int64 {
	nights := int64(salida.Sub(entrada).Hours() / 24)
	if nights <= 0 {
		nights = 1
	}
	rate, ok := domoNightlyRate[domo]
	if !ok {
		rate = defaultNightlyRate
	}
	total := rate * nights
	if domo == "Polaris" && guests > 2 {
		total += int64(guests-2) * extraGuestPerNight * nights
	}
	total += quoteServices(guests, extras)
	return total
}

func quoteServices(guests int, extras string) int64 {
	if extras == "" {
		return 0
	}
	var total int64
	for _, item := range strings.Split(strings.ToLower(extras), ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		for _, sp := range servicePrices {
			if strings.Contains(item, sp.match) {
				price := sp.price
				if sp.match == "masaje" && guests >= 2 {
					price *= 2 // masaje en pareja
				}
				total += price
				break
			}
		}
	}
	return total
}
