package paramtable

import "errors"

// Builder provides a fluent interface for constructing parameter Info
// values, mirroring the teacher's param.Builder.
type Builder struct {
	info Info
	err  error
}

// NewBuilder starts a builder for a parameter with the given id and name.
func NewBuilder(id uint32, name string) *Builder {
	return &Builder{
		info: Info{
			ID:           id,
			Name:         name,
			MinValue:     0.0,
			MaxValue:     1.0,
			DefaultValue: 0.5,
			Flags:        FlagAutomatable,
		},
	}
}

// Module sets the grouping path shown in a GUI parameter tree.
func (b *Builder) Module(module string) *Builder {
	if b.err != nil {
		return b
	}
	b.info.Module = module
	return b
}

// Display sets the GUI display hint used by Param.Format.
func (b *Builder) Display(hint DisplayHint) *Builder {
	if b.err != nil {
		return b
	}
	b.info.Display = hint
	return b
}

// Range sets min, max and default together, validating default falls
// within [min, max].
func (b *Builder) Range(min, max, defaultValue float64) *Builder {
	if b.err != nil {
		return b
	}
	if min >= max {
		b.err = errors.New("paramtable: min must be less than max")
		return b
	}
	if defaultValue < min || defaultValue > max {
		b.err = errors.New("paramtable: default must be within min/max range")
		return b
	}
	b.info.MinValue = min
	b.info.MaxValue = max
	b.info.DefaultValue = defaultValue
	return b
}

// Flags replaces the parameter's flag set.
func (b *Builder) Flags(flags Flags) *Builder {
	if b.err != nil {
		return b
	}
	b.info.Flags = flags
	return b
}

// AddFlags ORs additional flags into the parameter's flag set.
func (b *Builder) AddFlags(flags Flags) *Builder {
	if b.err != nil {
		return b
	}
	b.info.Flags |= flags
	return b
}

// Automatable marks the parameter host-automatable.
func (b *Builder) Automatable() *Builder { return b.AddFlags(FlagAutomatable) }

// Modulatable marks the parameter as accepting ADD/SCALE modulation.
func (b *Builder) Modulatable() *Builder { return b.AddFlags(FlagModulatable) }

// Stepped marks the parameter as taking only integer values within its range.
func (b *Builder) Stepped() *Builder { return b.AddFlags(FlagStepped) }

// Hidden hides the parameter from a generic GUI parameter list.
func (b *Builder) Hidden() *Builder { return b.AddFlags(FlagHidden) }

// ReadOnly marks the parameter as host-visible but not settable.
func (b *Builder) ReadOnly() *Builder { return b.AddFlags(FlagReadonly) }

// Enum marks the parameter as enum-valued and records its name table.
func (b *Builder) Enum(names ...string) *Builder {
	if b.err != nil {
		return b
	}
	b.info.Flags |= FlagEnum | FlagStepped
	b.info.EnumNames = names
	b.info.MinValue = 0
	b.info.MaxValue = float64(len(names) - 1)
	return b
}

// Build finalizes the Info, returning any validation error accumulated
// along the chain.
func (b *Builder) Build() (Info, error) {
	if b.err != nil {
		return Info{}, b.err
	}
	if b.info.Name == "" {
		return Info{}, errors.New("paramtable: parameter name is required")
	}
	if b.info.MinValue >= b.info.MaxValue {
		return Info{}, errors.New("paramtable: min must be less than max")
	}
	if b.info.DefaultValue < b.info.MinValue || b.info.DefaultValue > b.info.MaxValue {
		return Info{}, errors.New("paramtable: default must be within min/max range")
	}
	return b.info, nil
}

// MustBuild finalizes the Info, panicking on validation error. Intended for
// package-level var initialization where the parameter table is static.
func (b *Builder) MustBuild() Info {
	info, err := b.Build()
	if err != nil {
		panic(err)
	}
	return info
}
