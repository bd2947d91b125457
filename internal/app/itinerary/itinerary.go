// Package itinerary renders a trip snapshot for people and calendars.
package itinerary

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/peraluna/trip-planner-api/internal/app/assistant"
	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/platform/money"
)

const (
	productID = "-//Peraluna//Trip Planner//EN"
	uidDomain = "peraluna"
)

// Summary renders the printable booking summary: every item with its total, the trip
// total and its share of the budget.
func Summary(tc domain.TripContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s\n", tc.Destination, tc.Country)
	fmt.Fprintf(&b, "%s to %s · %d nights · %s\n", tc.StartDate, tc.EndDate, tc.Nights,
		assistant.TravelerSummary(tc.Adults, tc.Children))

	section := func(title string, items []domain.PlannedItem, unit func(domain.PlannedItem) string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s\n", title)
		for _, it := range items {
			b.WriteString("  " + it.Title)
			if it.Subtitle != nil {
				b.WriteString(" (" + *it.Subtitle + ")")
			}
			b.WriteByte('\n')
			fmt.Fprintf(&b, "    %s = %s\n", unit(it), money.Amount(tc.ItemCost(it)))
			if it.BookingReference != nil {
				fmt.Fprintf(&b, "    Booking Reference: %s\n", *it.BookingReference)
			}
		}
	}
	perPerson := func(it domain.PlannedItem) string {
		return fmt.Sprintf("%s/person × %d travelers", money.Amount(it.Price), tc.TotalTravelers)
	}
	perNight := func(it domain.PlannedItem) string {
		return fmt.Sprintf("%s/night × %d nights", money.Amount(it.Price), hotelNights(tc, it))
	}
	flat := func(it domain.PlannedItem) string { return money.Amount(it.Price) }

	p := tc.PlannedItems
	section("FLIGHTS", p.Flights, perPerson)
	section("HOTELS", p.Hotels, perNight)
	section("ACTIVITIES", p.Activities, perPerson)
	section("OTHER", p.Other, flat)

	fmt.Fprintf(&b, "\nTotal Trip Cost: %s\n", money.Amount(tc.TotalPlannedCost))
	fmt.Fprintf(&b, "%d%% of your %s budget\n", money.Percent(tc.TotalPlannedCost, tc.TotalBudget), money.Amount(tc.TotalBudget))
	return b.String()
}

// Calendar exports the trip as an iCalendar document: one all-day event spanning the
// trip and one per confirmed item. Flights sit on the first day, hotels cover their
// nights from check-in, activities span the trip.
func Calendar(tc domain.TripContext, stamp time.Time) (string, error) {
	start, err := time.Parse(time.DateOnly, tc.StartDate)
	if err != nil {
		return "", fmt.Errorf("trip start date: %w", err)
	}
	end, err := time.Parse(time.DateOnly, tc.EndDate)
	if err != nil {
		return "", fmt.Errorf("trip end date: %w", err)
	}
	// All-day DTEND is exclusive.
	lastDay := end.AddDate(0, 0, 1)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	trip := cal.AddEvent(fmt.Sprintf("trip-%s@%s", tc.TripID, uidDomain))
	trip.SetDtStampTime(stamp)
	trip.SetAllDayStartAt(start)
	trip.SetAllDayEndAt(lastDay)
	trip.SetSummary(fmt.Sprintf("Trip to %s, %s", tc.Destination, tc.Country))
	trip.SetDescription(fmt.Sprintf("%s. Planned cost %s of a %s budget.",
		assistant.TravelerSummary(tc.Adults, tc.Children), money.Amount(tc.TotalPlannedCost), money.Amount(tc.TotalBudget)))

	for _, it := range tc.PlannedItems.AllItems() {
		if !it.IsConfirmed || it.BookingReference == nil {
			continue
		}
		from, to := start, lastDay
		switch it.Type {
		case domain.ItemTypeFlight:
			to = start.AddDate(0, 0, 1)
		case domain.ItemTypeHotel:
			to = start.AddDate(0, 0, hotelNights(tc, it))
		}
		ev := cal.AddEvent(fmt.Sprintf("item-%s@%s", it.ID, uidDomain))
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(from)
		ev.SetAllDayEndAt(to)
		ev.SetSummary(fmt.Sprintf("%s: %s", cases.Title(language.English).String(string(it.Type)), it.Title))
		ev.SetDescription(fmt.Sprintf("Booking Reference: %s\nTotal: %s", *it.BookingReference, money.Amount(tc.ItemCost(it))))
	}
	return cal.Serialize(), nil
}

func hotelNights(tc domain.TripContext, it domain.PlannedItem) int {
	if it.Nights != nil && *it.Nights > 0 {
		return *it.Nights
	}
	return tc.Nights
}
