package domain

// Part is a catalog item offered on the marketplace.
type Part struct {
	ID          string  `json:"_id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Image       string  `json:"image,omitempty" yaml:"image"`
	Price       float64 `json:"price" yaml:"price"`
	Stock       int     `json:"stock" yaml:"stock"`
}
