package models

import "time"

type Restaurant struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	OwnerID     uint      `json:"owner_id" gorm:"not null"`
	Owner       User      `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name        string    `json:"name" gorm:"not null"`
	Cuisine     string    `json:"cuisine"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
	IsOpen      bool      `json:"is_open" gorm:"default:true"`
	Dishes      []Dish    `json:"dishes,omitempty" gorm:"foreignKey:RestaurantID"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TasteProfile classifies a dish for the customization UI
type TasteProfile string

const (
	TasteSpicy  TasteProfile = "spicy"
	TasteSalty  TasteProfile = "salty"
	TasteSweet  TasteProfile = "sweet"
	TasteNormal TasteProfile = "normal"
)

// DefaultPrepMinutes is used whenever a dish has no usable prep time
const DefaultPrepMinutes = 15

type Dish struct {
	ID              uint         `json:"id" gorm:"primaryKey"`
	RestaurantID    uint         `json:"restaurant_id" gorm:"not null"`
	Name            string       `json:"name" gorm:"not null"`
	Description     string       `json:"description"`
	Price           float64      `json:"price" gorm:"not null"`
	Taste           TasteProfile `json:"taste" gorm:"default:'normal'"`
	PrepTimeMinutes int          `json:"prep_time_minutes" gorm:"default:15"`

	// Customization axes — zero means "not customizable on this axis"
	MaxSpiceLevel int  `json:"max_spice_level"`
	MaxSaltLevel  int  `json:"max_salt_level"`
	MaxSweetLevel int  `json:"max_sweet_level"`
	HasSaladAddOn bool `json:"has_salad_add_on"`

	// Visibility gates — never mutate order history
	InStock        bool `json:"in_stock" gorm:"default:true"`
	AvailableToday bool `json:"available_today" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
