package assistant

import (
	"fmt"
	"strings"

	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/platform/money"
)

const persona = `You are Luna, a passionate travel guide and companion for Peraluna. You love travel and know destinations inside-out. You help users discover and plan trips through genuine, curious conversation.

YOUR PERSONALITY:
- Enthusiastic but genuine
- Curious: ask thoughtful questions to understand what they really want
- Knowledgeable: share insights, local tips, hidden gems and cultural context
- Patient: the conversation comes first, bookings second
- Personal: remember what they told you and refer back to it

=== CONVERSATION APPROACH ===
Be a travel guide first and a booking agent second.

PHASE 1 - WELCOME & DISCOVER (first response):
1. Greet them warmly and acknowledge their destination
2. Share 1-2 surprising facts about the destination
3. Ask a discovery question based on their interests

PHASE 2 - BUILD THE VISION (next 2-3 exchanges):
4. Suggest experiences, neighborhoods and ideas (not flights or hotels yet)
5. Share local tips and the best times to visit certain spots
6. Ask follow-up questions, e.g. "Beach or cultural heart?", "Early bird or leisurely mornings?"

PHASE 3 - PLAN TOGETHER:
7. Summarize what you learned about their ideal trip
8. Suggest specific areas to stay and why
9. Ask if they are ready to look at flights or hotels

PHASE 4 - BOOKING (only when ready):
10. Show personalized options using the card format below
11. Explain why each option fits what you learned

If the user asks for bookings early, do not refuse: ask 1-2 quick clarifying questions, then show options.

=== OPTION CARD FORMAT ===
When you show booking options, use this exact format so the UI renders clickable cards:

For FLIGHTS:
` + "```options" + `
[
  {"id":"f1","type":"flight","tag":"Best Value","title":"Airline Name Flight#","subtitle":"Origin → Destination (stops)","price":"$X,XXX/person","details":["Departure/arrival times","Duration • Class"]}
]
` + "```" + `

For HOTELS (always include "nights"; use separate options for split stays):
` + "```options" + `
[
  {"id":"h1","type":"hotel","tag":"Perfect For You","title":"Hotel Name","subtitle":"Neighborhood • Star rating","price":"$XXX/night","nights":3,"details":["Key amenities","Rating: X.X/5 (reviews)"]}
]
` + "```" + `

For ACTIVITIES:
` + "```options" + `
[
  {"id":"a1","type":"activity","tag":"Must Do","title":"Activity Name","subtitle":"Time/duration details","price":"$XX/person","details":["What's included","Group size, guide info"]}
]
` + "```" + `

Use tags like "Perfect For You", "Based on Your Interests", "Best Value", "Local Favorite", "Must Do".

=== AFTER USER SELECTS AN OPTION ===
- Confirm enthusiastically with a check mark
- Summarize what is planned so far
- Suggest what to explore next

=== BOOKING CONFIRMATION ===
When the user wants to finalize, summarize everything planned and tell them: "To confirm all your bookings, click the **'Confirm All Bookings'** button in the Trip Summary panel on the right side."
You cannot confirm bookings yourself. Never say "I've confirmed your bookings".

=== THINGS TO AVOID ===
- Offering flights or hotels in your first response
- Being transactional or robotic
- Short, clipped responses
- Generic advice that could apply to any destination`

// BuildSystemPrompt renders the Luna persona followed by the trip snapshot. A nil context
// yields the persona alone.
func BuildSystemPrompt(tc *domain.TripContext) string {
	if tc == nil {
		return persona
	}

	var b strings.Builder
	b.WriteString(persona)

	tier := strings.ToUpper(string(tc.BudgetTier))
	interests := strings.Join(tc.Interests, ", ")

	b.WriteString("\n\n=== CURRENT TRIP CONTEXT ===\n")
	fmt.Fprintf(&b, "Destination: %s, %s\n", tc.Destination, tc.Country)
	fmt.Fprintf(&b, "Travel Dates: %s to %s (%d nights)\n", tc.StartDate, tc.EndDate, tc.Nights)
	fmt.Fprintf(&b, "Travelers: %s\n", TravelerSummary(tc.Adults, tc.Children))
	fmt.Fprintf(&b, "Total Budget: %s\n", money.Amount(tc.TotalBudget))
	fmt.Fprintf(&b, "Budget Tier: %s ($%.0f/person/night)\n", tier, tc.BudgetPerPersonPerNight)
	if interests == "" {
		b.WriteString("Interests: Not specified\n")
	} else {
		fmt.Fprintf(&b, "Interests: %s\n", interests)
	}
	fmt.Fprintf(&b, "Flexibility: %s\n", strings.ReplaceAll(string(tc.Flexibility), "-", " "))

	pr := tc.PriceRanges
	b.WriteString("\n=== BUDGET GUIDANCE ===\n")
	fmt.Fprintf(&b, "Based on their %s tier budget, suggest options in these ranges:\n", tier)
	fmt.Fprintf(&b, "- Flights: $%d-%d/person\n", pr.Flight.Min(), pr.Flight.Max())
	fmt.Fprintf(&b, "- Hotels: $%d-%d/night\n", pr.Hotel.Min(), pr.Hotel.Max())
	fmt.Fprintf(&b, "- Activities: $%d-%d/person\n", pr.Activity.Min(), pr.Activity.Max())

	b.WriteString("\n=== PRICING RULES ===\n")
	fmt.Fprintf(&b, "- Flight prices are PER PERSON - total cost = price × %d travelers\n", tc.TotalTravelers)
	fmt.Fprintf(&b, "- Hotel prices are PER NIGHT - total cost = price × %d nights unless the hotel has its own night count\n", tc.Nights)
	fmt.Fprintf(&b, "- Activity prices are PER PERSON - total cost = price × %d travelers\n", tc.TotalTravelers)
	b.WriteString("- Always show prices as \"$X/person\" or \"$X/night\"\n")

	b.WriteString("\n=== WHAT'S ALREADY PLANNED ===\n")
	writePlanned(&b, tc)
	fmt.Fprintf(&b, "\nTotal Planned Cost: %s\n", money.Amount(tc.TotalPlannedCost))
	fmt.Fprintf(&b, "Remaining Budget: %s\n", money.Amount(tc.RemainingBudget))

	b.WriteString("\n=== INSTRUCTIONS ===\n")
	fmt.Fprintf(&b, "- Generate flight and hotel prices that make sense for %s and the %s budget tier\n", tc.Destination, tier)
	b.WriteString("- Keep options within the suggested price ranges above\n")
	b.WriteString("- Include options at different price points within the tier\n")
	fmt.Fprintf(&b, "- For activities, prioritize ones matching their interests: %s\n", interests)
	if tc.Children > 0 {
		fmt.Fprintf(&b, "- They're traveling with %s - suggest family-friendly options!\n", plural(tc.Children, "child", "children"))
	}

	b.WriteString("\n=== CONVERSATION PHASE ===\n")
	b.WriteString(phaseGuidance(tc, interests))
	return b.String()
}

// TravelerSummary renders e.g. "2 adults + 1 child (3 total)" or "1 adult".
func TravelerSummary(adults, children int) string {
	a := plural(adults, "adult", "adults")
	if children <= 0 {
		return a
	}
	return fmt.Sprintf("%s + %s (%d total)", a, plural(children, "child", "children"), adults+children)
}

func writePlanned(b *strings.Builder, tc *domain.TripContext) {
	items := tc.PlannedItems
	if len(items.Flights) == 0 {
		b.WriteString("Flights: NOT YET SELECTED\n")
	}
	for _, f := range items.Flights {
		title := f.Title
		if f.Subtitle != nil {
			title += " (" + *f.Subtitle + ")"
		}
		fmt.Fprintf(b, "Flight: %s - %s/person (Total: %s) %s\n",
			title, money.Amount(f.Price), money.Amount(tc.ItemCost(f)), statusMark(f))
	}

	if len(items.Hotels) == 0 {
		b.WriteString("Hotel: NOT YET SELECTED\n")
	}
	for _, h := range items.Hotels {
		nights := tc.Nights
		if h.Nights != nil && *h.Nights > 0 {
			nights = *h.Nights
		}
		fmt.Fprintf(b, "Hotel: %s - %s/night (Total: %s for %d nights) %s\n",
			h.Title, money.Amount(h.Price), money.Amount(tc.ItemCost(h)), nights, statusMark(h))
	}

	if len(items.Activities) == 0 {
		b.WriteString("Activities: None selected yet\n")
	} else {
		parts := make([]string, 0, len(items.Activities))
		for _, a := range items.Activities {
			parts = append(parts, fmt.Sprintf("%s (%s/person = %s total)", a.Title, money.Amount(a.Price), money.Amount(tc.ItemCost(a))))
		}
		fmt.Fprintf(b, "Activities: %s\n", strings.Join(parts, ", "))
	}

	for _, o := range items.Other {
		fmt.Fprintf(b, "Other (%s): %s - %s %s\n", o.Type, o.Title, money.Amount(tc.ItemCost(o)), statusMark(o))
	}
}

func phaseGuidance(tc *domain.TripContext, interests string) string {
	flights := len(tc.PlannedItems.Flights)
	hotels := len(tc.PlannedItems.Hotels)
	activities := len(tc.PlannedItems.Activities)

	switch {
	case flights == 0 && hotels == 0 && activities == 0:
		return fmt.Sprintf(`Nothing booked yet - you're in DISCOVERY PHASE!
- Share interesting facts about %s
- Ask questions to understand their ideal trip
- Suggest experiences and areas based on their interests: %s
- DON'T jump to booking options yet - have a genuine conversation first!
- When you feel you understand their vision, ask if they're ready to look at flights
`, tc.Destination, interests)
	case flights > 0 && hotels == 0:
		return fmt.Sprintf(`Flights selected! Now discuss accommodations:
- Ask about their preferred area/neighborhood in %s
- Share insights about different areas and what makes each special
- When ready, show hotel options that match what you've learned about them
`, tc.Destination)
	case flights > 0 && hotels > 0 && activities == 0:
		return fmt.Sprintf(`Flights & hotel booked! Time for activities:
- Suggest experiences based on their interests: %s
- Share local tips, hidden gems, best times to visit places
- Show activity options when ready
`, interests)
	default:
		return `Everything is planned! Wrap up the planning:
- Summarize their complete trip itinerary
- Share any final tips or recommendations
- Direct them to click "Confirm All Bookings" in the Trip Summary panel on the right
`
	}
}

func statusMark(it domain.PlannedItem) string {
	if it.IsConfirmed {
		return "[CONFIRMED]"
	}
	return "[PLANNED]"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
