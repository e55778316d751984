package paper

// Optional marks a field of a partial update as either unchanged (the zero
// value) or set to a value.
type Optional[T any] struct {
	value T
	set   bool
}

// Set returns an Optional holding v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Unchanged returns an Optional that leaves the field as it is.
func Unchanged[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) IsSet() bool { return o.set }

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// PaperUpdate is a shallow partial update of a Paper's scalar fields.
// Sections are changed only through the section operations.
type PaperUpdate struct {
	Title       Optional[string]
	Description Optional[string]
	Duration    Optional[float64]
	TotalMarks  Optional[float64]
	Status      Optional[Status]
}

// Empty reports whether the update sets no field.
func (u PaperUpdate) Empty() bool {
	return !u.Title.IsSet() && !u.Description.IsSet() && !u.Duration.IsSet() &&
		!u.TotalMarks.IsSet() && !u.Status.IsSet()
}

// Apply merges the set fields over p. Identity and timestamps are left alone.
func (u PaperUpdate) Apply(p *Paper) {
	if v, ok := u.Title.Get(); ok {
		p.Title = v
	}
	if v, ok := u.Description.Get(); ok {
		p.Description = v
	}
	if v, ok := u.Duration.Get(); ok {
		p.Duration = v
	}
	if v, ok := u.TotalMarks.Get(); ok {
		p.TotalMarks = v
	}
	if v, ok := u.Status.Get(); ok {
		p.Status = v
	}
}
