// Package migrate rewrites python-telegram-bot v13 persistence data.
package migrate

import (
	"errors"
	"fmt"
	"io"

	"github.com/yndnr/ptb-migrate/internal/core/domain"
	"github.com/yndnr/ptb-migrate/pkg/pickle"
)

const (
	// LegacyBotSentinel is the string v13 stored in place of Bot instances.
	LegacyBotSentinel = "bot_instance_replaced_by_ptb_persistence"

	// BotPersistentID is the persistent id v20 resolves to its Bot.
	BotPersistentID = "a known bot replaced by PTB's PicklePersistence"
)

var (
	// ReconstructTo is the function v20 pickles TelegramObjects through.
	ReconstructTo = pickle.Global{Module: "telegram.ext._picklepersistence", Name: "_reconstruct_to"}

	copyregReconstructor = pickle.Global{Module: "copyreg", Name: "_reconstructor"}
)

// Stats counts what one migration changed.
type Stats struct {
	// Protocol is the pickle protocol of the input, 0 for protocols
	// without a PROTO opcode.
	Protocol int
	// Objects is the number of telegram objects whose state was restored.
	Objects int
	// Classes counts restored objects by v20 class path.
	Classes map[string]int
	// Renamed counts renamed attributes by their legacy name.
	Renamed map[string]int
	// Sentinels is the number of bot placeholders written as persistent ids.
	Sentinels int
}

func newStats() *Stats {
	return &Stats{
		Classes: make(map[string]int),
		Renamed: make(map[string]int),
	}
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithRegistry replaces the default class registry.
func WithRegistry(r *Registry) Option {
	return func(m *Migrator) {
		m.registry = r
	}
}

// WithProtocol sets the pickle protocol of the output (3 to 5).
func WithProtocol(proto int) Option {
	return func(m *Migrator) {
		m.protocol = proto
	}
}

// WithRenames replaces FieldRenames.
func WithRenames(table []Rename) Option {
	return func(m *Migrator) {
		m.renames = table
	}
}

// Migrator converts v13 pickles to v20. A Migrator holds no per-run
// state; each call to Migrate or Inspect works on its own object graph.
type Migrator struct {
	registry *Registry
	renames  []Rename
	protocol int
}

// New creates a Migrator.
func New(opts ...Option) *Migrator {
	m := &Migrator{
		registry: DefaultRegistry(),
		renames:  FieldRenames,
		protocol: pickle.DefaultProtocol,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Protocol returns the output protocol.
func (m *Migrator) Protocol() int {
	return m.protocol
}

// Migrate reads one pickled snapshot from r and writes the migrated
// snapshot to w. Nothing is written to w when decoding fails.
func (m *Migrator) Migrate(r io.Reader, w io.Writer) (*Stats, error) {
	run := &run{m: m, stats: newStats()}

	root, err := run.decode(r)
	if err != nil {
		return nil, err
	}
	if err := run.encode(w, root); err != nil {
		return nil, err
	}
	return run.stats, nil
}

// Decode reads a snapshot applying class resolution and field renames,
// without writing anything.
func (m *Migrator) Decode(r io.Reader) (pickle.Value, *Stats, error) {
	run := &run{m: m, stats: newStats()}
	root, err := run.decode(r)
	if err != nil {
		return nil, nil, err
	}
	return root, run.stats, nil
}

// run is the state of one Migrate call.
type run struct {
	m     *Migrator
	stats *Stats
}

func (r *run) decode(src io.Reader) (pickle.Value, error) {
	dec := pickle.NewDecoder(src,
		pickle.WithFindClass(r.findClass),
		pickle.WithSetState(r.setState),
	)
	root, err := dec.Decode()
	r.stats.Protocol = dec.Protocol()
	if err != nil {
		// Hook errors are already coded.
		if domain.IsDomainError(err, "") {
			return nil, err
		}
		return nil, domain.ErrDecode.WithCause(err)
	}
	return root, nil
}

func (r *run) encode(dst io.Writer, root pickle.Value) error {
	enc := pickle.NewEncoder(dst,
		pickle.WithProtocol(r.m.protocol),
		pickle.WithPersistentID(r.persistentID),
		pickle.WithReducerOverride(r.reducerOverride),
	)
	if err := enc.Encode(root); err != nil {
		var re *pickle.RecursionError
		if errors.As(err, &re) {
			if info, ok := r.hostClass(re.Object); ok {
				return domain.ErrEncode.WithDetailsf("%s refers back to itself", info.Path()).WithCause(err)
			}
		}
		return domain.ErrEncode.WithCause(err)
	}
	return nil
}

// findClass resolves telegram classes by name; everything else is kept
// as a plain reference.
func (r *run) findClass(module, name string) (pickle.Value, error) {
	if !IsTelegramModule(module) {
		return pickle.Global{Module: module, Name: name}, nil
	}
	if module == ReconstructTo.Module && name == ReconstructTo.Name {
		return reconstructor{run: r}, nil
	}
	info, ok := r.m.registry.Resolve(name)
	if !ok {
		return nil, domain.ErrUnknownType.WithDetailsf("%s.%s", module, name)
	}
	return info.Global(), nil
}

// setState renames the attributes of telegram objects before storing
// their state.
func (r *run) setState(obj *pickle.Object, state pickle.Value) error {
	info, ok := r.hostClass(obj)
	if !ok {
		return pickle.DefaultSetState(obj, state)
	}
	restored, err := r.restore(info, state)
	if err != nil {
		return err
	}
	obj.State = restored.Value()
	return nil
}

func (r *run) restore(info ClassInfo, state pickle.Value) (State, error) {
	parsed, err := ParseState(state)
	if err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			return nil, de.WithDetailsf("%s: %s", info.Path(), de.Details)
		}
		return nil, err
	}
	renamed, names := RenameFields(parsed, r.m.renames)
	for _, name := range names {
		r.stats.Renamed[name]++
	}
	r.stats.Objects++
	r.stats.Classes[info.Path()]++
	return renamed, nil
}

// hostClass returns the registered class of obj, looking through
// copyreg._reconstructor used by protocols 0 and 1.
func (r *run) hostClass(obj *pickle.Object) (ClassInfo, bool) {
	return hostClass(r.m.registry, obj)
}

func hostClass(reg *Registry, obj *pickle.Object) (ClassInfo, bool) {
	g, ok := obj.ClassGlobal()
	if !ok {
		return ClassInfo{}, false
	}
	if g == copyregReconstructor && len(obj.Args) > 0 {
		if g, ok = obj.Args[0].(pickle.Global); !ok {
			return ClassInfo{}, false
		}
	}
	return reg.Lookup(g)
}

func (r *run) persistentID(v pickle.Value) (pickle.Value, bool) {
	if s, ok := v.(string); ok && s == LegacyBotSentinel {
		r.stats.Sentinels++
		return BotPersistentID, true
	}
	return nil, false
}

// reducerOverride writes TelegramObjects as _reconstruct_to(cls, attrs).
func (r *run) reducerOverride(obj *pickle.Object) (*pickle.Object, bool) {
	info, ok := r.hostClass(obj)
	if !ok || info.Kind != KindDomain {
		return nil, false
	}
	attrs := &pickle.Dict{}
	if obj.State != nil {
		parsed, err := ParseState(obj.State)
		if err != nil {
			return nil, false
		}
		attrs = parsed.Fields()
	}
	return &pickle.Object{
		Class: ReconstructTo,
		Kind:  pickle.KindReduce,
		Args:  pickle.Tuple{info.Global(), attrs},
	}, true
}

// reconstructor stands in for _reconstruct_to when reading data that was
// already written by v20, so reruns see the same objects as a v13 read.
type reconstructor struct {
	run *run
}

func (c reconstructor) Call(args pickle.Tuple) (pickle.Value, error) {
	if len(args) != 2 {
		return nil, domain.ErrUnsupportedState.WithDetailsf("_reconstruct_to takes 2 arguments, got %d", len(args))
	}
	cls, ok := args[0].(pickle.Global)
	if !ok {
		return nil, domain.ErrUnsupportedState.WithDetailsf("_reconstruct_to class is %s", typeName(args[0]))
	}
	info, ok := c.run.m.registry.Lookup(cls)
	if !ok {
		return nil, domain.ErrUnknownType.WithDetails(cls.String())
	}
	obj := &pickle.Object{Class: cls, Kind: pickle.KindNewObj, Args: pickle.Tuple{}}
	restored, err := c.run.restore(info, args[1])
	if err != nil {
		return nil, err
	}
	obj.State = restored.Value()
	return obj, nil
}

// String implements fmt.Stringer for diagnostics.
func (s *Stats) String() string {
	return fmt.Sprintf("objects=%d renamed=%d sentinels=%d", s.Objects, s.renamedTotal(), s.Sentinels)
}

func (s *Stats) renamedTotal() int {
	n := 0
	for _, c := range s.Renamed {
		n += c
	}
	return n
}
