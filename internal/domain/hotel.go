package domain

const (
	CityMakkah  = "Makkah"
	CityMadinah = "Madinah"
)

type Hotel struct {
	ID          string   `json:"id"`
	City        string   `json:"city"` // Makkah|Madinah
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Distance    string   `json:"distance"`
	WalkingTime string   `json:"walkingTime"`
	HasShuttle  bool     `json:"hasShuttle"`
	Transport   string   `json:"transport"`
	Images      []string `json:"images"` // file store references
}
