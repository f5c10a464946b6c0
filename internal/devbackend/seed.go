package devbackend

// Country is one catalog entry served by GET /admin/countries.
type Country struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PhoneCode string `json:"phone_code,omitempty"`
}

// seedCountryNames mirrors the production catalog, including its non-canonical names ("UAE", "USA").
var seedCountryNames = []string{
	"India", "Pakistan", "Bangladesh", "Indonesia", "Malaysia", "Philippines", "Thailand", "Vietnam",
	"Singapore", "Japan", "South Korea", "China", "Taiwan", "Hong Kong",
	"UAE", "Saudi Arabia", "Qatar", "Kuwait", "Turkey", "Israel", "Iran", "Iraq",
	"United Kingdom", "Germany", "France", "Italy", "Spain", "Netherlands", "Belgium", "Switzerland",
	"Austria", "Poland", "Ukraine", "Russia", "Sweden", "Norway", "Denmark", "Finland", "Portugal", "Greece",
	"USA", "Canada", "Mexico", "Brazil", "Argentina", "Chile", "Colombia", "Peru",
	"South Africa", "Nigeria", "Kenya", "Egypt", "Morocco", "Algeria", "Tunisia",
	"Australia", "New Zealand",
}

// SeedCountries returns the default catalog with ids starting at 1. Like the production catalog it
// carries no calling codes; the console binds them from its own table.
func SeedCountries() []Country {
	out := make([]Country, len(seedCountryNames))
	for i, name := range seedCountryNames {
		out[i] = Country{ID: int64(i + 1), Name: name}
	}
	return out
}
