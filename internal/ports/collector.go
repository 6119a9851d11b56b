package ports

import "github.com/ghalamif/DAOGuard/internal/domain"

// Collector delivers raw events from a transport into the pipeline.
type Collector interface {
	Start(out chan<- *domain.Event) error
	Stop() error
}
