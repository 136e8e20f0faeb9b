package analysis

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"
	"go.uber.org/zap"

	"github.com/rlch/entcheck/diag"
)

// ErrSessionFinished is returned when entities are added after Finish.
var ErrSessionFinished = errors.New("session already finished")

type slotState int

const (
	slotUnseen slotState = iota
	slotBuilt
	slotDrained
)

// slot is the engine state of one entity name. Names get a slot on first
// mention, before the entity itself may have been built.
type slot struct {
	name    string
	state   slotState
	entity  *Entity
	waiting []*Field
}

// Session resolves the relations of one compilation pass. Entities are
// added one at a time in any order; relations whose counterpart entity is
// not built yet wait in that entity's slot until it arrives.
//
// A Session is not safe for concurrent use and must not be reused across
// passes.
type Session struct {
	log *zap.Logger

	ids   map[string]int
	slots []slot
	built []int // slot ids in arrival order

	rejected []*Entity
	result   *Result
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for resolution tracing.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSession creates an empty session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		log: zap.NewNop(),
		ids: make(map[string]int),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Session) id(name string) int {
	if id, ok := s.ids[name]; ok {
		return id
	}

	id := len(s.slots)
	s.slots = append(s.slots, slot{name: name})
	s.ids[name] = id

	return id
}

func (s *Session) entity(name string) *Entity {
	id, ok := s.ids[name]
	if !ok {
		return nil
	}

	return s.slots[id].entity
}

// Add registers a built entity, links its relation fields against entities
// already seen and drains the fields that were waiting for it.
func (s *Session) Add(e *Entity) error {
	if s.result != nil {
		return ErrSessionFinished
	}

	id := s.id(e.Name)
	if s.slots[id].state != slotUnseen {
		e.report(diag.New(diag.CodeDuplicateEntity, location(e.Path, e.NameSpan), nil,
			"entity %s is already declared in %s", e.Name, s.slots[id].entity.Path))
		s.rejected = append(s.rejected, e)
		s.log.Debug("duplicate entity", zap.String("entity", e.Name))

		return nil
	}

	s.slots[id].entity = e
	s.slots[id].state = slotBuilt
	s.built = append(s.built, id)
	s.log.Debug("entity added", zap.String("entity", e.Name), zap.Int("id", id), zap.Int("fields", len(e.Fields)))

	for _, f := range e.Fields {
		if d := f.Relation; d != nil && !d.Balanced() {
			e.report(diag.New(diag.CodeRelationKeyCountMismatch, location(f.Path, d.Span), nil,
				"@relation on %s.%s lists %d keys but %d references", e.Name, f.Name, len(d.Keys), len(d.References)))
		}
	}

	for _, f := range e.Fields {
		target := f.Target()
		if target == "" || !f.AttachPoint {
			continue
		}

		tid := s.id(target)
		if s.slots[tid].state != slotUnseen {
			s.link(f, s.slots[tid].entity)

			continue
		}

		s.slots[tid].waiting = append(s.slots[tid].waiting, f)
		s.log.Debug("relation deferred",
			zap.String("field", f.Entity+"."+f.Name), zap.String("target", target))
	}

	waiting := s.slots[id].waiting
	s.slots[id].waiting = nil
	s.slots[id].state = slotDrained

	for _, w := range waiting {
		s.link(w, e)
	}

	if len(waiting) > 0 {
		s.log.Debug("worklist drained", zap.String("entity", e.Name), zap.Int("fields", len(waiting)))
	}

	return nil
}

// relationFields returns the attachable fields of e targeting name, in
// declaration order.
func relationFields(e *Entity, name string) []*Field {
	var out []*Field

	for _, f := range e.Fields {
		if f.AttachPoint && f.Target() == name {
			out = append(out, f)
		}
	}

	return out
}

// counterpart pairs fields positionally: the i-th field of one side
// targeting the other with the i-th field of the other side. Self
// relations pair consecutive fields.
func counterpart(f *Field, fe, t *Entity) *Field {
	if fe == t {
		fields := relationFields(fe, fe.Name)
		idx := slices.Index(fields, f)

		if p := idx ^ 1; idx >= 0 && p < len(fields) {
			return fields[p]
		}

		return nil
	}

	idx := slices.Index(relationFields(fe, t.Name), f)
	theirs := relationFields(t, fe.Name)

	if idx >= 0 && idx < len(theirs) {
		return theirs[idx]
	}

	return nil
}

func (s *Session) link(f *Field, t *Entity) {
	if f.Link != nil {
		return
	}

	fe := s.entity(f.Entity)

	g := counterpart(f, fe, t)
	if g == nil {
		if t.rejectedRefs[fe.Name] > 0 {
			s.log.Debug("counterpart rejected", zap.String("field", f.Entity+"."+f.Name))

			return
		}

		s.missingRelation(f, fe, t)

		return
	}

	x, y := f, g
	if g.before(f) {
		x, y = g, f
	}

	s.log.Debug("relation linked",
		zap.String("from", x.Entity+"."+x.Name), zap.String("to", y.Entity+"."+y.Name))

	switch {
	case x.Array && y.Array:
		s.manyToMany(x, y)
	case !x.Array && !y.Array:
		s.oneToOne(x, y)
	default:
		s.oneToMany(x, y)
	}
}

func (s *Session) missingRelation(f *Field, fe, t *Entity) {
	base := strcase.ToLowerCamel(fe.Name)
	name := base

	// Pairing is positional, so unpaired fields come after the paired ones.
	// The k-th unpaired field gets the k-th name t does not declare.
	k := 0
	if fe != t {
		k = max(slices.Index(relationFields(fe, t.Name), f)-len(relationFields(t, fe.Name)), 0)
	}

	for i := 2; ; i++ {
		if !t.Declares(name) {
			if k == 0 {
				break
			}

			k--
		}

		name = fmt.Sprintf("%s%d", base, i)
	}

	var payload diag.Payload
	if t.body.insertOffset >= 0 {
		payload = &diag.MissingRelation{
			Path:      t.Path,
			Offset:    t.body.insertOffset,
			Target:    t.Name,
			FieldName: name,
			FieldType: fe.Name,
			Indent:    t.body.indent,
		}
	}

	fe.report(diag.New(diag.CodeMissingRelationField, location(f.Path, f.NameSpan), payload,
		"related entity %s has no corresponding relation field for %s.%s", t.Name, fe.Name, f.Name))
}

func attach(f, partner *Field, c Cardinality, owner bool) {
	f.Link = &Link{
		Partner:     FieldRef{Entity: partner.Entity, Field: partner.Name},
		Cardinality: c,
		Owner:       owner,
	}
	f.AttachedToEntity = c != ManyToMany
}

func (s *Session) manyToMany(x, y *Field) {
	attach(x, y, ManyToMany, false)
	attach(y, x, ManyToMany, false)

	s.entity(x.Entity).report(diag.New(diag.CodeManyToMany, location(x.Path, x.NameSpan), nil,
		"many-to-many relation between %s.%s and %s.%s is not supported", x.Entity, x.Name, y.Entity, y.Name))
}

func relationInsertion(f *Field) *diag.Insertion {
	return &diag.Insertion{Path: f.Path, Offset: f.TypeSpan.End.Offset, Text: " @relation", What: "@relation"}
}

// oneToOne requires exactly one side to own the relation. x precedes y in
// source order.
func (s *Session) oneToOne(x, y *Field) {
	var owner *Field

	switch {
	case x.Relation != nil && y.Relation != nil:
		owner = x
		s.entity(y.Entity).report(diag.New(diag.CodeRelationOwnershipConflict, location(y.Path, y.Relation.Span), y.relationRemoval,
			"both %s.%s and %s.%s declare @relation, only one side of a one-to-one relation can own it",
			x.Entity, x.Name, y.Entity, y.Name))
	case x.Relation == nil && y.Relation == nil:
		side, other := y, x
		if y.Optional && !x.Optional {
			side, other = x, y
		}

		s.entity(side.Entity).report(diag.New(diag.CodeRelationOwnershipAmbiguous, location(side.Path, side.NameSpan), relationInsertion(side),
			"one-to-one relation between %s.%s and %s.%s has no owner, add @relation to one side",
			side.Entity, side.Name, other.Entity, other.Name))
	case x.Relation != nil:
		owner = x
	default:
		owner = y
	}

	attach(x, y, OneToOne, owner == x)
	attach(y, x, OneToOne, owner == y)

	if owner != nil {
		partner := y
		if owner == y {
			partner = x
		}

		s.validateOwner(owner, s.entity(partner.Entity))
	}
}

// oneToMany requires the scalar side to own the relation.
func (s *Session) oneToMany(x, y *Field) {
	one, many := x, y
	if x.Array {
		one, many = y, x
	}

	if many.Relation != nil {
		move := &diag.AnnotationMove{
			FromPath:   many.relationRemoval.Path,
			FromOffset: many.relationRemoval.Offset,
			FromLength: many.relationRemoval.Length,
		}

		// An unbalanced directive is reported on its own and is not copied.
		if one.Relation == nil && many.Relation.Balanced() {
			move.ToPath = one.Path
			move.ToOffset = one.TypeSpan.End.Offset
			move.Annotation = " " + many.relationText
			move.ToField = one.Entity + "." + one.Name
		}

		s.entity(many.Entity).report(diag.New(diag.CodeArraySideOwner, location(many.Path, many.Relation.Span), move,
			"array side %s.%s cannot declare foreign keys, move @relation to %s.%s",
			many.Entity, many.Name, one.Entity, one.Name))
	} else if one.Relation == nil {
		s.entity(one.Entity).report(diag.New(diag.CodeRelationOwnerMissing, location(one.Path, one.NameSpan), relationInsertion(one),
			"%s.%s must declare @relation, it is the scalar side of a one-to-many relation with %s.%s",
			one.Entity, one.Name, many.Entity, many.Name))
	}

	attach(one, many, ManyToOne, one.Relation != nil)
	attach(many, one, OneToMany, false)

	if one.Relation != nil {
		s.validateOwner(one, s.entity(many.Entity))
	}
}

// ForeignKeyName returns the generated foreign key column of an implicit
// relation field referencing pk.
func ForeignKeyName(field, pk string) string {
	return strcase.ToLowerCamel(field + "_" + pk)
}

func explicitRelation(d *RelationDirective, keys, refs []string) string {
	var b strings.Builder

	b.WriteString("@relation(keys: [")
	b.WriteString(strings.Join(keys, ", "))
	b.WriteString("], references: [")
	b.WriteString(strings.Join(refs, ", "))
	b.WriteString("]")

	if d.OnDelete != ActionNone {
		b.WriteString(", onDelete: " + string(d.OnDelete))
	}

	if d.OnUpdate != ActionNone {
		b.WriteString(", onUpdate: " + string(d.OnUpdate))
	}

	b.WriteString(")")

	return b.String()
}

func (s *Session) validateOwner(o *Field, te *Entity) {
	oe := s.entity(o.Entity)
	d := o.Relation

	if d.Explicit {
		s.validateExplicit(o, oe, te)

		return
	}

	pks := te.KeyNames()

	switch len(pks) {
	case 0:
		// the target reports empty-key itself
	case 1:
		fk := ForeignKeyName(o.Name, pks[0])
		if o.AttachedToEntity && oe.Declares(fk) {
			oe.report(diag.New(diag.CodeForeignKeyConflict, location(o.Path, d.Span),
				&diag.Rewrite{
					Path: o.Path, Offset: d.Span.Start.Offset, Length: d.Span.Len(),
					Text: explicitRelation(d, []string{fk}, pks), What: "explicit @relation",
				},
				"generated foreign key %s of %s.%s collides with declared field %s", fk, oe.Name, o.Name, fk))
		}
	default:
		keys := make([]string, len(pks))
		for i, pk := range pks {
			keys[i] = ForeignKeyName(o.Name, pk)
		}

		oe.report(diag.New(diag.CodeRelationCompositeKey, location(o.Path, d.Span),
			&diag.Rewrite{
				Path: o.Path, Offset: d.Span.Start.Offset, Length: d.Span.Len(),
				Text: explicitRelation(d, keys, pks), What: "explicit @relation",
			},
			"cannot infer reference from composite key (%s) of %s, list keys and references", strings.Join(pks, ", "), te.Name))
	}
}

func (s *Session) validateExplicit(o *Field, oe, te *Entity) {
	d := o.Relation

	// Add reports unbalanced directives.
	if !d.Balanced() {
		return
	}

	for i, k := range d.Keys {
		if oe.Declares(k.Name) {
			continue
		}

		typ := "int"
		if rf := te.Field(d.References[i].Name); rf != nil && TypeName(rf.Class) != "" {
			typ = TypeName(rf.Class)
		}

		var payload diag.Payload
		if oe.body.insertOffset >= 0 {
			payload = &diag.Insertion{
				Path:   oe.Path,
				Offset: oe.body.insertOffset,
				Text:   oe.body.indent + k.Name + ": " + typ + ";\n",
				What:   "field " + k.Name,
			}
		}

		oe.report(diag.New(diag.CodeRelationKeyNotFound, location(o.Path, k.Span), payload,
			"relation key %s is not declared on entity %s", k.Name, oe.Name))
	}

	pks := te.KeyNames()

	for i, r := range d.References {
		switch {
		case !te.Declares(r.Name):
			var payload diag.Payload
			if i < len(pks) {
				payload = &diag.Rewrite{Path: o.Path, Offset: r.Span.Start.Offset, Length: r.Span.Len(), Text: pks[i], What: pks[i]}
			}

			oe.report(diag.New(diag.CodeRelationReferenceNotFound, location(o.Path, r.Span), payload,
				"referenced field %s is not declared on entity %s", r.Name, te.Name))
		case !te.IsKey(r.Name) && !te.IsUnique(r.Name):
			oe.report(diag.New(diag.CodeRelationReferenceNotKey, location(o.Path, r.Span), nil,
				"referenced field %s of entity %s is neither a key nor unique", r.Name, te.Name))
		}
	}

	for i, k := range d.Keys {
		kf, rf := oe.Field(k.Name), te.Field(d.References[i].Name)
		if kf == nil || rf == nil {
			continue
		}

		kt, rt := TypeName(kf.Class), TypeName(rf.Class)
		if _, ok := kf.Class.(Relation); ok || kt == rt {
			continue
		}

		if _, ok := rf.Class.(Relation); ok {
			continue
		}

		oe.report(diag.New(diag.CodeRelationKeyTypeMismatch, location(o.Path, k.Span),
			&diag.TypeReplacement{
				Path: kf.Path, Offset: kf.TypeSpan.Start.Offset, Length: kf.TypeSpan.Len(),
				Current: kt, Candidates: []string{rt},
			},
			"relation key %s.%s is %s but references %s.%s of type %s", oe.Name, k.Name, kt, te.Name, rf.Name, rt))
	}
}

// Finish reports relations that never found their entity and entities
// outside the pass's module, and returns the result. Later calls return
// the same result.
func (s *Session) Finish() *Result {
	if s.result != nil {
		return s.result
	}

	for _, sl := range s.slots {
		if sl.state != slotUnseen {
			continue
		}

		for _, f := range sl.waiting {
			s.unresolved(f, sl.name)
		}
	}

	s.checkModules()

	res := &Result{Entities: make(map[string]*Entity, len(s.built))}

	for _, id := range s.built {
		e := s.slots[id].entity
		res.Entities[e.Name] = e
		res.Diagnostics = append(res.Diagnostics, e.Diagnostics...)
	}

	for _, e := range s.rejected {
		res.Diagnostics = append(res.Diagnostics, e.Diagnostics...)
	}

	diag.Sort(res.Diagnostics)
	s.result = res

	s.log.Debug("session finished",
		zap.Int("entities", len(res.Entities)), zap.Int("diagnostics", len(res.Diagnostics)))

	return res
}

func (s *Session) unresolved(f *Field, target string) {
	var payload diag.Payload

	reason := fmt.Sprintf("entity %s was not analyzed", target)

	if f.target != nil && !f.target.entity {
		reason = fmt.Sprintf("%s is not an entity", target)
		payload = &diag.Insertion{Path: f.target.path, Offset: f.target.offset, Text: "@entity\n", What: "@entity on " + target}
	}

	s.entity(f.Entity).report(diag.New(diag.CodeUnresolvedRelation, location(f.Path, f.TypeSpan), payload,
		"no matching relation field found for %s.%s: %s", f.Entity, f.Name, reason))
}

// checkModules picks the module most entities belong to, ties broken by
// name, and reports every entity outside it.
func (s *Session) checkModules() {
	counts := make(map[string]int)
	for _, id := range s.built {
		counts[s.slots[id].entity.Module]++
	}

	if len(counts) < 2 {
		return
	}

	modules := make([]string, 0, len(counts))
	for m := range counts {
		modules = append(modules, m)
	}

	slices.SortFunc(modules, func(a, b string) int {
		return cmp.Or(cmp.Compare(counts[b], counts[a]), cmp.Compare(a, b))
	})

	canonical := modules[0]

	for _, id := range s.built {
		e := s.slots[id].entity
		if e.Module == canonical {
			continue
		}

		e.report(diag.New(diag.CodeEntityModuleMismatch, location(e.Path, e.NameSpan), nil,
			"entity %s belongs to module %s, but this pass analyzes module %s",
			e.Name, moduleName(e.Module), moduleName(canonical)))
	}
}

func moduleName(m string) string {
	if m == "" {
		return "(none)"
	}

	return m
}
