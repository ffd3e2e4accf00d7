// Package orders holds the pure order-view logic of the driver screens:
// status/date filtering, the urgent-first unaccepted view and the two
// aggregates derived from a filtered list.
package orders

import (
	"sort"
	"time"

	"github.com/Cherry1177/cloudtribe/internal/models"
)

// MissingLocationLabel groups line items whose pickup location was never
// filled in.
const MissingLocationLabel = "未指定地點"

// Filter keeps the orders matching status and the optional inclusive
// calendar-date bounds (YYYY-MM-DD). Orders without a usable timestamp are
// dropped only while a date bound is active. Completed views are sorted
// most recent first; orders lacking a timestamp keep their slot.
func Filter(all []models.Order, status models.OrderStatus, startDate, endDate string) []models.Order {
	filtered := make([]models.Order, 0, len(all))
	for _, order := range all {
		if order.Status != status {
			continue
		}

		if startDate != "" || endDate != "" {
			day, ok := calendarDate(order.Timestamp)
			if !ok {
				continue
			}
			if startDate != "" && day < startDate {
				continue
			}
			if endDate != "" && day > endDate {
				continue
			}
		}

		filtered = append(filtered, order)
	}

	if status == models.OrderStatusCompleted {
		sort.SliceStable(filtered, func(i, j int) bool {
			ti, iok := parseTimestamp(filtered[i].Timestamp)
			tj, jok := parseTimestamp(filtered[j].Timestamp)
			if !iok || !jok {
				return false
			}
			return ti.After(tj)
		})
	}

	return filtered
}

// Unaccepted is the view of the open-orders screen: every unaccepted
// order, urgent ones first, otherwise in arrival order.
func Unaccepted(all []models.Order) []models.Order {
	view := make([]models.Order, 0, len(all))
	for _, order := range all {
		if order.Status == models.OrderStatusUnaccepted {
			view = append(view, order)
		}
	}

	sort.SliceStable(view, func(i, j int) bool {
		return view[i].IsUrgent && !view[j].IsUrgent
	})

	return view
}

// TotalPrice sums total_price over the filtered set.
func TotalPrice(filtered []models.Order) float64 {
	var total float64
	for _, order := range filtered {
		total += order.TotalPrice
	}
	return total
}

// AggregatedItem is one shopping-list line inside a location group.
type AggregatedItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// LocationItems groups the items to buy at one pickup location.
type LocationItems struct {
	Location string           `json:"location"`
	Items    []AggregatedItem `json:"items"`
}

// ItemsByLocation flattens every line item across the filtered orders into
// per-location shopping lists, summing quantities of same-named items.
// Locations and items appear in first-encounter order.
func ItemsByLocation(filtered []models.Order) []LocationItems {
	groups := make([]LocationItems, 0)
	groupIdx := make(map[string]int)
	itemIdx := make(map[string]map[string]int)

	for _, order := range filtered {
		for _, item := range order.Items {
			location := item.Location
			if location == "" {
				location = MissingLocationLabel
			}

			gi, ok := groupIdx[location]
			if !ok {
				gi = len(groups)
				groupIdx[location] = gi
				groups = append(groups, LocationItems{Location: location})
				itemIdx[location] = make(map[string]int)
			}

			if ii, ok := itemIdx[location][item.Name]; ok {
				groups[gi].Items[ii].Quantity += item.Quantity
			} else {
				itemIdx[location][item.Name] = len(groups[gi].Items)
				groups[gi].Items = append(groups[gi].Items, AggregatedItem{
					Name:     item.Name,
					Quantity: item.Quantity,
				})
			}
		}
	}

	return groups
}

func calendarDate(timestamp string) (string, bool) {
	t, ok := parseTimestamp(timestamp)
	if !ok {
		return "", false
	}
	return t.UTC().Format("2006-01-02"), true
}

func parseTimestamp(timestamp string) (time.Time, bool) {
	if timestamp == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
