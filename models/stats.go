package models

// DishStatistic aggregates how often a dish was ordered, bucketed by
// calendar windows. Derived data — rebuilt by rescanning orders, never
// written by user action.
type DishStatistic struct {
	DishID    uint  `json:"dish_id"`
	Today     int64 `json:"today"`
	Yesterday int64 `json:"yesterday"`
	Week      int64 `json:"week"`
	Month     int64 `json:"month"`
	AllTime   int64 `json:"all_time"`
}
