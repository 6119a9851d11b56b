package ports

import "github.com/ghalamif/DAOGuard/internal/domain"

// Codec converts between advertisements and their wire form.
type Codec interface {
	Encode(adv domain.Advertisement) []byte
	Decode(payload []byte) (domain.Advertisement, error)
	Name() string
}
