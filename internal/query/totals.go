package query

// Totals are the headline numbers for a view, the figures dashboards render
// as metric tiles. A zero-row view yields all zeros; rates divide by zero
// nowhere.
type Totals struct {
	Crashes            int     `json:"crashes"`
	Deaths             int     `json:"deaths"`
	SeriousInjuries    int     `json:"serious_injuries"`
	FatalityRate       float64 `json:"fatality_rate"` // deaths per 100 crashes
	PedestrianDeaths   int     `json:"pedestrian_deaths"`
	BicycleDeaths      int     `json:"bicycle_deaths"`
	MotorcycleDeaths   int     `json:"motorcycle_deaths"`
	MotorVehicleDeaths int     `json:"motor_vehicle_deaths"`
	TotalCost          float64 `json:"total_cost"`
	AverageCost        float64 `json:"average_cost"`
}

// Summarize totals a view in one pass.
func Summarize(view View) Totals {
	t := Totals{Crashes: len(view)}
	for _, rec := range view {
		t.Deaths += rec.DeathCount
		t.SeriousInjuries += rec.SeriousInjuryCount
		t.PedestrianDeaths += rec.PedestrianDeathCount
		t.BicycleDeaths += rec.BicycleDeathCount
		t.MotorcycleDeaths += rec.MotorcycleDeathCount
		t.MotorVehicleDeaths += rec.MotorVehicleDeathCount
		t.TotalCost += rec.ComprehensiveCost
	}
	if t.Crashes > 0 {
		t.FatalityRate = float64(t.Deaths) / float64(t.Crashes) * 100
		t.AverageCost = t.TotalCost / float64(t.Crashes)
	}
	return t
}
