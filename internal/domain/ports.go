package domain

// RunStore persists run matrices so they can be re-aggregated without
// retraining.
type RunStore interface {
	// Save stores runs, assigning an ID when empty, and returns the ID.
	Save(runs *Runs) (string, error)
	Load(id string) (*Runs, error)
	// Latest returns the most recently saved runs of a variant.
	Latest(variant Variant) (*Runs, error)
	Close() error
}
