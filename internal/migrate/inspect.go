// Package migrate rewrites python-telegram-bot v13 persistence data.
package migrate

import (
	"io"
	"sort"

	"github.com/yndnr/ptb-migrate/internal/core/domain"
	"github.com/yndnr/ptb-migrate/pkg/pickle"
)

// Inspection describes a snapshot as stored, before any migration.
type Inspection struct {
	// Protocol is the pickle protocol of the stream.
	Protocol int `json:"protocol" yaml:"protocol"`
	// Root is the type of the top-level value.
	Root string `json:"root" yaml:"root"`
	// Classes counts telegram objects by the class path found in the stream.
	Classes map[string]int `json:"classes" yaml:"classes"`
	// LegacyFields counts attributes that a migration would rename.
	LegacyFields map[string]int `json:"legacy_fields" yaml:"legacy_fields"`
	// Sentinels is the number of v13 bot placeholders.
	Sentinels int `json:"sentinels" yaml:"sentinels"`
	// PersistentRefs is the number of persistent ids already present.
	PersistentRefs int `json:"persistent_refs" yaml:"persistent_refs"`
	// Unknown lists telegram classes that have no v20 equivalent.
	Unknown []string `json:"unknown,omitempty" yaml:"unknown,omitempty"`
}

// Migrated reports whether the snapshot is already in v20 form.
func (i *Inspection) Migrated() bool {
	return len(i.LegacyFields) == 0 && i.Sentinels == 0 && len(i.Unknown) == 0
}

// Inspect reads a snapshot without resolving or renaming anything.
func (m *Migrator) Inspect(r io.Reader) (*Inspection, error) {
	dec := pickle.NewDecoder(r)
	root, err := dec.Decode()
	if err != nil {
		return nil, domain.ErrDecode.WithCause(err)
	}

	in := &Inspection{
		Protocol:     dec.Protocol(),
		Root:         typeName(root),
		Classes:      make(map[string]int),
		LegacyFields: make(map[string]int),
	}
	unknown := make(map[string]struct{})

	err = pickle.Walk(root, func(v pickle.Value) error {
		switch x := v.(type) {
		case string:
			if x == LegacyBotSentinel {
				in.Sentinels++
			}
		case pickle.PersistentRef:
			in.PersistentRefs++
		case *pickle.Object:
			cls, fields, ok := telegramObject(x)
			if !ok {
				return nil
			}
			in.Classes[cls.String()]++
			if _, known := m.registry.Resolve(cls.Name); !known {
				unknown[cls.String()] = struct{}{}
			}
			for _, r := range m.renames {
				if fields.Has(r.Old) {
					in.LegacyFields[r.Old]++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for name := range unknown {
		in.Unknown = append(in.Unknown, name)
	}
	sort.Strings(in.Unknown)
	return in, nil
}

// telegramObject returns the class and attribute map of a raw decoded
// telegram object in any of the shapes v13 and v20 write.
func telegramObject(obj *pickle.Object) (pickle.Global, *pickle.Dict, bool) {
	g, ok := obj.ClassGlobal()
	if !ok {
		return pickle.Global{}, nil, false
	}

	switch {
	case g == ReconstructTo:
		if len(obj.Args) != 2 {
			return pickle.Global{}, nil, false
		}
		cls, ok := obj.Args[0].(pickle.Global)
		attrs, _ := obj.Args[1].(*pickle.Dict)
		return cls, attrs, ok && IsTelegramModule(cls.Module)
	case g == copyregReconstructor && len(obj.Args) > 0:
		if g, ok = obj.Args[0].(pickle.Global); !ok {
			return pickle.Global{}, nil, false
		}
	}
	if !IsTelegramModule(g.Module) {
		return pickle.Global{}, nil, false
	}

	state, err := ParseState(obj.State)
	if err != nil {
		return g, nil, true
	}
	return g, state.Fields(), true
}
