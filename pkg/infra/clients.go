package infra

import (
	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/repository/memory"
)

// Clients bundles the external collaborators of the pipeline: the entity
// store, the analysis engine, the upstream code host, and the optional
// analytics sink.
type Clients struct {
	store    interfaces.Store
	analyzer interfaces.Analyzer
	codeHost interfaces.CodeHost
	bqClient interfaces.BigQuery
}

type Option func(*Clients)

func New(options ...Option) *Clients {
	client := &Clients{
		store: memory.New(),
	}

	for _, opt := range options {
		opt(client)
	}

	return client
}

func (x *Clients) Store() interfaces.Store {
	return x.store
}
func (x *Clients) Analyzer() interfaces.Analyzer {
	return x.analyzer
}
func (x *Clients) CodeHost() interfaces.CodeHost {
	return x.codeHost
}
func (x *Clients) BigQuery() interfaces.BigQuery {
	return x.bqClient
}

func WithStore(store interfaces.Store) Option {
	return func(x *Clients) {
		x.store = store
	}
}

func WithAnalyzer(analyzer interfaces.Analyzer) Option {
	return func(x *Clients) {
		x.analyzer = analyzer
	}
}

func WithCodeHost(host interfaces.CodeHost) Option {
	return func(x *Clients) {
		x.codeHost = host
	}
}

func WithBigQuery(client interfaces.BigQuery) Option {
	return func(x *Clients) {
		x.bqClient = client
	}
}
