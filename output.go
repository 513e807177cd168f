package main

import (
	"fmt"
	"strings"

	"allrentr/models"
	"allrentr/services"
)

func printNotice(n *models.Notice) {
	if n == nil {
		return
	}
	color := "33"
	if n.Destructive {
		color = "31"
	}
	fmt.Printf("\n  \033[1;%sm%s\033[0m\n  %s\n", color, n.Title, n.Message)
	if n.SuggestedRadius > 0 {
		fmt.Printf("  Suggested radius: %skm\n", services.FormatKm(n.SuggestedRadius))
	}
	fmt.Println()
}

func printNearby(v services.View, result *models.ProximityResult) {
	if result == nil {
		return
	}
	fmt.Printf("\n\033[1;35m  %d listings within %skm\033[0m (%s)\n", len(v.Listings), services.FormatKm(result.RadiusMeters), result.Source)
	fmt.Printf("  %s\n", strings.Repeat("─", 54))
	for i, l := range v.Listings {
		place := l.Locality
		if place == "" {
			place = l.City
		}
		fmt.Printf("  %2d. %-32s %7.2fkm  ₹%-8.0f %s\n",
			i+1, services.Truncate(l.ProductName, 32), v.Distances[l.ID]/1000, l.RentPrice, place)
	}
	printNotice(v.Notice)
}
