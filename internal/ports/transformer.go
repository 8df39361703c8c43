package ports

import "github.com/ghalamif/myofeed/internal/domain"

type Transformer interface {
	Transform(domain.Sample) (domain.Sample, error)
	Name() string
}
