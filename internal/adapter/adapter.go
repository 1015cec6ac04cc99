// Package adapter is the query façade: it compiles find specifications,
// runs them through an executor and reassembles nested entities.
//
// Finds run in two phases. The restriction selects the matching entity
// identifiers; the expansion fetches their properties and requested
// relations with a CONSTRUCT. When an order is requested and more than
// one entity is expected, the ordered identifier list is fetched first
// and bound into the expansion with VALUES, so entity order follows the
// selection exactly.
package adapter

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/roach88/quadquery/internal/config"
	"github.com/roach88/quadquery/internal/engine"
	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/executor"
	"github.com/roach88/quadquery/internal/querybuilder"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// QueryAdapter is the capability interface of the query façade.
type QueryAdapter interface {
	Find(ctx context.Context, opts querybuilder.FindOptions) (*entity.Entity, error)
	FindAll(ctx context.Context, opts querybuilder.FindOptions) ([]*entity.Entity, error)
	FindBy(ctx context.Context, where map[string]any) (*entity.Entity, error)
	FindAllBy(ctx context.Context, where map[string]any) ([]*entity.Entity, error)
	Exists(ctx context.Context, opts querybuilder.FindOptions) (bool, error)
	Count(ctx context.Context, opts querybuilder.FindOptions) (int, error)
	Save(ctx context.Context, entities ...*entity.Entity) ([]*entity.Entity, error)
	Update(ctx context.Context, ids []string, attrs map[string]any) error
	Delete(ctx context.Context, ids ...string) error
	Destroy(ctx context.Context, ids ...string) error
	ExecuteRawQuery(ctx context.Context, text string) (*executor.RawResult, error)
	ExecuteRawUpdate(ctx context.Context, text string) error
	GroupBy(ctx context.Context, opts querybuilder.GroupByOptions) ([]GroupResult, error)
}

// Adapter implements QueryAdapter over an Executor.
//
// Thread-safety: safe for concurrent use when the executor is. Every call
// compiles with its own builder.
type Adapter struct {
	exec       executor.Executor
	clock      Clock
	ids        IDGenerator
	timestamps bool
	log        *logrus.Entry
}

var _ QueryAdapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock sets the clock used for timestamps.
//
// Default: SystemClock
func WithClock(c Clock) Option {
	return func(a *Adapter) {
		a.clock = c
	}
}

// WithIDGenerator sets the generator naming entities saved without an
// identifier.
//
// Default: UUIDv7Generator
func WithIDGenerator(g IDGenerator) Option {
	return func(a *Adapter) {
		a.ids = g
	}
}

// WithTimestamps enables dcterms:created and dcterms:modified stamping.
func WithTimestamps(enabled bool) Option {
	return func(a *Adapter) {
		a.timestamps = enabled
	}
}

// WithLogger sets the logger of the adapter and of executors it creates.
func WithLogger(log *logrus.Entry) Option {
	return func(a *Adapter) {
		a.log = log
	}
}

func newAdapter(opts []Option) *Adapter {
	a := &Adapter{
		clock: SystemClock{},
		ids:   UUIDv7Generator{},
		log:   logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// New creates an Adapter with the executor cfg selects. Options override
// cfg.SetTimestamps.
func New(cfg *config.Config, opts ...Option) (*Adapter, error) {
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	a := newAdapter(append([]Option{WithTimestamps(cfg.SetTimestamps)}, opts...))

	var err error
	switch cfg.Backend {
	case config.BackendMemory:
		var engineOpts []engine.Option
		if cfg.MaxSolutions > 0 {
			engineOpts = append(engineOpts, engine.WithMaxSolutions(cfg.MaxSolutions))
		}
		a.exec, err = executor.NewMemoryExecutor(cfg.StorePath,
			executor.WithLogger(a.log),
			executor.WithEngineOptions(engineOpts...))
	case config.BackendRemote:
		execOpts := []executor.Option{
			executor.WithLogger(a.log),
			executor.WithUpdateEndpoint(cfg.UpdateEndpoint),
			executor.WithTimeout(cfg.Timeout),
		}
		for name, value := range cfg.Headers {
			execOpts = append(execOpts, executor.WithHeader(name, value))
		}
		a.exec, err = executor.NewRemoteExecutor(cfg.QueryEndpoint, execOpts...)
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	a.log.WithField("backend", cfg.Backend).Debug("adapter ready")
	return a, nil
}

// NewWithExecutor creates an Adapter over exec.
func NewWithExecutor(exec executor.Executor, opts ...Option) *Adapter {
	a := newAdapter(opts)
	a.exec = exec
	return a
}

// Executor returns the executor the adapter runs documents on.
func (a *Adapter) Executor() executor.Executor {
	return a.exec
}

// Close closes the executor.
func (a *Adapter) Close() error {
	return a.exec.Close()
}

// Find returns the first entity matching opts. Limit is forced to one.
// It returns a *NotFoundError carrying opts when nothing matches.
func (a *Adapter) Find(ctx context.Context, opts querybuilder.FindOptions) (*entity.Entity, error) {
	single := opts
	single.Limit = 1
	found, err := a.FindAll(ctx, single)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, &NotFoundError{Options: opts}
	}
	return found[0], nil
}

// FindAll returns every entity matching opts. It returns an empty,
// non-nil slice when nothing matches.
func (a *Adapter) FindAll(ctx context.Context, opts querybuilder.FindOptions) ([]*entity.Entity, error) {
	b := querybuilder.NewBuilder()
	data, err := b.BuildEntitySelectPatterns(opts)
	if err != nil {
		return nil, err
	}
	log := a.log.WithFields(logrus.Fields{
		"operation": "findAll",
		"limit":     opts.Limit,
		"offset":    opts.Offset,
	})

	var (
		order     []string
		construct *queryir.Query
	)
	if data.Ordered() && opts.ExpectsMany() {
		rows, err := a.exec.ExecuteSelect(ctx, b.BuildEntitySelectQuery(data, opts.Limit, opts.Offset))
		if err != nil {
			return nil, err
		}
		order = entityIDs(rows)
		if len(order) == 0 {
			log.Debug("ordered selection is empty, skipping expansion")
			return []*entity.Entity{}, nil
		}
		construct = b.BuildConstructQuery(data, order, 0, 0)
	} else {
		construct = b.BuildConstructQuery(data, nil, opts.Limit, opts.Offset)
	}

	triples, err := a.exec.ExecuteConstruct(ctx, construct)
	if err != nil {
		return nil, err
	}
	found := entity.Reassemble(triples, data.Expansion.Frames, order)
	log.WithFields(logrus.Fields{
		"triples":  len(triples),
		"entities": len(found),
	}).Debug("find complete")
	if found == nil {
		found = []*entity.Entity{}
	}
	return found, nil
}

// FindBy is Find with only a where clause.
func (a *Adapter) FindBy(ctx context.Context, where map[string]any) (*entity.Entity, error) {
	return a.Find(ctx, querybuilder.FindOptions{Where: where})
}

// FindAllBy is FindAll with only a where clause.
func (a *Adapter) FindAllBy(ctx context.Context, where map[string]any) ([]*entity.Entity, error) {
	return a.FindAll(ctx, querybuilder.FindOptions{Where: where})
}

// Exists reports whether any entity matches the restriction of opts.
// Order, relations, select and pagination are ignored.
func (a *Adapter) Exists(ctx context.Context, opts querybuilder.FindOptions) (bool, error) {
	b := querybuilder.NewBuilder()
	data, err := b.BuildEntitySelectPatterns(restrictionOnly(opts))
	if err != nil {
		return false, err
	}
	return a.exec.ExecuteAsk(ctx, b.BuildAskQuery(data))
}

// Count returns the number of distinct entities matching the restriction
// of opts. Order, relations, select and pagination are ignored.
func (a *Adapter) Count(ctx context.Context, opts querybuilder.FindOptions) (int, error) {
	b := querybuilder.NewBuilder()
	data, err := b.BuildEntitySelectPatterns(restrictionOnly(opts))
	if err != nil {
		return 0, err
	}
	return a.exec.ExecuteSelectCount(ctx, b.BuildCountQuery(data))
}

func restrictionOnly(opts querybuilder.FindOptions) querybuilder.FindOptions {
	return querybuilder.FindOptions{Where: opts.Where, SubQueries: opts.SubQueries}
}

func (a *Adapter) updateBuilder() *querybuilder.UpdateBuilder {
	return &querybuilder.UpdateBuilder{
		Now:        a.clock.Now(),
		Timestamps: a.timestamps,
		NewID:      a.ids.Generate,
	}
}

// Save writes entities, replacing each one's stored properties. Entities
// without an identifier are named by the ID generator. It returns the
// entities as stored; the arguments are not modified.
func (a *Adapter) Save(ctx context.Context, entities ...*entity.Entity) ([]*entity.Entity, error) {
	if len(entities) == 0 {
		return []*entity.Entity{}, nil
	}
	u, saved, err := a.updateBuilder().BuildSave(entities)
	if err != nil {
		return nil, err
	}
	if err := a.exec.ExecuteUpdate(ctx, u); err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"operation": "save", "entities": len(saved)}).Debug("saved")
	return saved, nil
}

// Update replaces the given properties of each entity. A nil attribute
// value removes the property.
func (a *Adapter) Update(ctx context.Context, ids []string, attrs map[string]any) error {
	if len(ids) == 0 {
		return nil
	}
	u, err := a.updateBuilder().BuildUpdate(ids, attrs)
	if err != nil {
		return err
	}
	return a.exec.ExecuteUpdate(ctx, u)
}

// Delete removes the entities' own statements. References to them from
// other entities are kept.
func (a *Adapter) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	u, err := a.updateBuilder().BuildDelete(ids)
	if err != nil {
		return err
	}
	return a.exec.ExecuteUpdate(ctx, u)
}

// Destroy removes the entities and every statement referring to them.
func (a *Adapter) Destroy(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	u, err := a.updateBuilder().BuildDestroy(ids)
	if err != nil {
		return err
	}
	return a.exec.ExecuteUpdate(ctx, u)
}

// ExecuteRawQuery passes text to the executor.
func (a *Adapter) ExecuteRawQuery(ctx context.Context, text string) (*executor.RawResult, error) {
	return a.exec.ExecuteRawQuery(ctx, text)
}

// ExecuteRawUpdate passes text to the executor.
func (a *Adapter) ExecuteRawUpdate(ctx context.Context, text string) error {
	return a.exec.ExecuteRawUpdate(ctx, text)
}

// entityIDs reads the entity identifiers of an ordered selection.
func entityIDs(rows []rdf.Binding) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if iri, ok := row[string(querybuilder.EntityVariable)].(rdf.IRI); ok {
			ids = append(ids, string(iri))
		}
	}
	return ids
}
