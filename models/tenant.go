package models

// ResolveRestaurantID picks the owning restaurant out of the legacy alias
// fields carried by WhatsApp-sourced payloads. Historical intake records
// stored the tenant under different names depending on the client version,
// so resolution follows a fixed precedence:
//
//	restaurantID > adminID > hotelID > userID
//
// Returns 0 when no alias is set; callers must treat that as unresolvable
// rather than falling back to a shared tenant.
func ResolveRestaurantID(restaurantID, adminID, hotelID, userID uint) uint {
	for _, id := range []uint{restaurantID, adminID, hotelID, userID} {
		if id != 0 {
			return id
		}
	}
	return 0
}
