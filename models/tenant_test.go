package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRestaurantID(t *testing.T) {
	tests := []struct {
		name                                 string
		restaurantID, adminID, hotelID, user uint
		expected                             uint
	}{
		{"restaurant_id_wins", 1, 2, 3, 4, 1},
		{"admin_id_next", 0, 2, 3, 4, 2},
		{"hotel_id_next", 0, 0, 3, 4, 3},
		{"user_id_last", 0, 0, 0, 4, 4},
		{"nothing_set", 0, 0, 0, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolveRestaurantID(tc.restaurantID, tc.adminID, tc.hotelID, tc.user))
		})
	}
}
