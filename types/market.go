package types

// Market describes a tradeable prediction market, as returned by market
// discovery. Strategies use it to pick instruments; the simulation core
// never reads it.
type Market struct {
	Platform     Platform
	ID           string
	Title        string
	StartTime    int64
	CloseTime    int64
	ResolvedTime int64
	Status       string
	Outcome      string // settlement result: "yes", "no" or "" while open
}
