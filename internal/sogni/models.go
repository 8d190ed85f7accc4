package sogni

// Model describes an available generation model and its worker capacity as
// reported by the provider.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WorkerCount int    `json:"workerCount"`
}

// MostPopular returns the model with the strictly maximal worker count.
// Ties keep the first model in provider order. Returns false for an empty
// catalog.
func MostPopular(models []Model) (Model, bool) {
	if len(models) == 0 {
		return Model{}, false
	}
	best := models[0]
	for _, m := range models[1:] {
		if m.WorkerCount > best.WorkerCount {
			best = m
		}
	}
	return best, true
}
