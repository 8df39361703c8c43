package ports

import "github.com/ghalamif/myofeed/internal/domain"

type Sink interface {
	WriteBatch(samples []domain.Sample) error
	Name() string
}
