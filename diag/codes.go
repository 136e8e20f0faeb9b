package diag

import (
	"slices"
)

// Code identifies a kind of diagnostic.
type Code string

// Syntax.
const (
	CodeParseError Code = "parse-error"
)

// Structural: entity and field shape violations.
const (
	CodeEntityNotClosed      Code = "entity-not-closed"
	CodeRestField            Code = "rest-field"
	CodeDefaultValue         Code = "default-value"
	CodeInheritedField       Code = "inherited-field"
	CodeDuplicateField       Code = "duplicate-field"
	CodeUnsupportedType      Code = "unsupported-type"
	CodeOptionalField        Code = "optional-field"
	CodeArrayField           Code = "array-field"
	CodeDuplicateEntity      Code = "duplicate-entity"
	CodeEntityModuleMismatch Code = "entity-module-mismatch"
)

// Reference: names in key, unique and type positions that do not resolve.
const (
	CodeReferencedTypeNotFound Code = "referenced-type-not-found"
	CodeKeyFieldNotFound       Code = "key-field-not-found"
	CodeDuplicateKeyField      Code = "duplicate-key-field"
	CodeEmptyKey               Code = "empty-key"
	CodeInvalidKeyField        Code = "invalid-key-field"
	CodeKeyFieldNotReadonly    Code = "key-field-not-readonly"
	CodeUniqueFieldNotFound    Code = "unique-field-not-found"
	CodeDuplicateUniqueField   Code = "duplicate-unique-field"
	CodeEmptyUniqueGroup       Code = "empty-unique-group"
)

// Directive usage.
const (
	CodeUnknownAnnotation         Code = "unknown-annotation"
	CodeDuplicateAnnotation       Code = "duplicate-annotation"
	CodeMisplacedAnnotation       Code = "misplaced-annotation"
	CodeInvalidAnnotationArgument Code = "invalid-annotation-argument"
	CodeAutoIncrementNotKey       Code = "auto-increment-not-key"
	CodeAutoIncrementType         Code = "auto-increment-type"
)

// Relationship.
const (
	CodeMissingRelationField       Code = "missing-relation-field"
	CodeRelationOwnershipConflict  Code = "relation-ownership-conflict"
	CodeRelationOwnershipAmbiguous Code = "relation-ownership-ambiguous"
	CodeRelationOwnerMissing       Code = "relation-owner-missing"
	CodeArraySideOwner             Code = "array-side-owner"
	CodeManyToMany                 Code = "many-to-many"
	CodeRelationKeyCountMismatch   Code = "relation-key-count-mismatch"
	CodeRelationKeyNotFound        Code = "relation-key-not-found"
	CodeRelationReferenceNotFound  Code = "relation-reference-not-found"
	CodeRelationReferenceNotKey    Code = "relation-reference-not-key"
	CodeRelationCompositeKey       Code = "relation-composite-key"
	CodeForeignKeyConflict         Code = "foreign-key-conflict"
	CodeRelationKeyTypeMismatch    Code = "relation-key-type-mismatch"
	CodeUnresolvedRelation         Code = "unresolved-relation"
)

// Category groups codes by the kind of problem they report.
type Category int

// Categories.
const (
	CategorySyntax Category = iota + 1
	CategoryStructural
	CategoryReference
	CategoryRelationship
	CategoryDirective
)

func (c Category) String() string {
	switch c {
	case CategorySyntax:
		return "syntax"
	case CategoryStructural:
		return "structural"
	case CategoryReference:
		return "reference"
	case CategoryRelationship:
		return "relationship"
	case CategoryDirective:
		return "directive"
	default:
		return "unknown"
	}
}

// Info describes a code.
type Info struct {
	Category Category
	Severity Severity
	// Payload is the payload shape diagnostics of this code carry, or
	// PayloadNone for explanation-only codes.
	Payload PayloadKind
	Doc     string
}

var registry = map[Code]Info{
	CodeParseError: {CategorySyntax, SeverityError, PayloadNone, "The file could not be parsed."},

	CodeEntityNotClosed:      {CategoryStructural, SeverityError, PayloadClosure, "Entities must use the closed record shape {| |}."},
	CodeRestField:            {CategoryStructural, SeverityError, PayloadRemoval, "Entities cannot declare a rest descriptor."},
	CodeDefaultValue:         {CategoryStructural, SeverityError, PayloadRemoval, "Entity fields cannot have default values."},
	CodeInheritedField:       {CategoryStructural, SeverityError, PayloadRemoval, "Entities cannot include fields from other records."},
	CodeDuplicateField:       {CategoryStructural, SeverityError, PayloadRemoval, "A field name is declared more than once."},
	CodeUnsupportedType:      {CategoryStructural, SeverityError, PayloadTypeReplacement, "The field type cannot be persisted."},
	CodeOptionalField:        {CategoryStructural, SeverityError, PayloadRemoval, "Persistent scalar fields must not be optional."},
	CodeArrayField:           {CategoryStructural, SeverityError, PayloadRemoval, "Persistent scalar fields must not be arrays."},
	CodeDuplicateEntity:      {CategoryStructural, SeverityError, PayloadNone, "An entity name is declared more than once."},
	CodeEntityModuleMismatch: {CategoryStructural, SeverityError, PayloadNone, "All entities of a pass must belong to one module."},

	CodeReferencedTypeNotFound: {CategoryReference, SeverityError, PayloadTypeReplacement, "The field type names no known record."},
	CodeKeyFieldNotFound:       {CategoryReference, SeverityError, PayloadRemoval, "A key names a field that is not declared."},
	CodeDuplicateKeyField:      {CategoryReference, SeverityError, PayloadRemoval, "A key names the same field twice."},
	CodeEmptyKey:               {CategoryReference, SeverityError, PayloadInsertion, "An entity must declare a primary key."},
	CodeInvalidKeyField:        {CategoryReference, SeverityError, PayloadRemoval, "Key fields must be scalar."},
	CodeKeyFieldNotReadonly:    {CategoryReference, SeverityError, PayloadInsertion, "Key fields must be readonly."},
	CodeUniqueFieldNotFound:    {CategoryReference, SeverityError, PayloadRemoval, "A unique group names a field that is not declared."},
	CodeDuplicateUniqueField:   {CategoryReference, SeverityError, PayloadRemoval, "A unique group names the same field twice."},
	CodeEmptyUniqueGroup:       {CategoryReference, SeverityError, PayloadRemoval, "A unique group is empty."},

	CodeUnknownAnnotation:         {CategoryDirective, SeverityError, PayloadRemoval, "The annotation is not known."},
	CodeDuplicateAnnotation:       {CategoryDirective, SeverityError, PayloadRemoval, "The annotation is given more than once."},
	CodeMisplacedAnnotation:       {CategoryDirective, SeverityError, PayloadRemoval, "The annotation is not allowed here."},
	CodeInvalidAnnotationArgument: {CategoryDirective, SeverityError, PayloadRemoval, "The annotation argument is unknown or malformed."},
	CodeAutoIncrementNotKey:       {CategoryDirective, SeverityError, PayloadRemoval, "Auto-increment fields must be part of the primary key."},
	CodeAutoIncrementType:         {CategoryDirective, SeverityError, PayloadTypeReplacement, "Auto-increment fields must be int."},

	CodeMissingRelationField:       {CategoryRelationship, SeverityError, PayloadMissingRelation, "The related entity has no corresponding relation field."},
	CodeRelationOwnershipConflict:  {CategoryRelationship, SeverityError, PayloadRemoval, "Both sides of a one-to-one relation declare @relation."},
	CodeRelationOwnershipAmbiguous: {CategoryRelationship, SeverityError, PayloadInsertion, "Neither side of a one-to-one relation declares @relation."},
	CodeRelationOwnerMissing:       {CategoryRelationship, SeverityError, PayloadInsertion, "The scalar side of a one-to-many relation must declare @relation."},
	CodeArraySideOwner:             {CategoryRelationship, SeverityError, PayloadAnnotationMove, "The array side of a relation cannot declare foreign keys."},
	CodeManyToMany:                 {CategoryRelationship, SeverityError, PayloadNone, "Many-to-many relations are not supported."},
	CodeRelationKeyCountMismatch:   {CategoryRelationship, SeverityError, PayloadNone, "@relation keys and references differ in length."},
	CodeRelationKeyNotFound:        {CategoryRelationship, SeverityError, PayloadInsertion, "A @relation key is not declared on the owning entity."},
	CodeRelationReferenceNotFound:  {CategoryRelationship, SeverityError, PayloadRewrite, "A @relation reference is not declared on the target entity."},
	CodeRelationReferenceNotKey:    {CategoryRelationship, SeverityWarning, PayloadNone, "A @relation reference is not a key of the target entity."},
	CodeRelationCompositeKey:       {CategoryRelationship, SeverityError, PayloadRewrite, "Cannot infer the reference from a composite key."},
	CodeForeignKeyConflict:         {CategoryRelationship, SeverityError, PayloadRewrite, "The generated foreign key collides with a declared field."},
	CodeRelationKeyTypeMismatch:    {CategoryRelationship, SeverityError, PayloadTypeReplacement, "A @relation key and its reference have different types."},
	CodeUnresolvedRelation:         {CategoryRelationship, SeverityError, PayloadInsertion, "No matching relation field found."},
}

// Lookup returns the registered info for a code.
func Lookup(code Code) (Info, bool) {
	info, ok := registry[code]

	return info, ok
}

// Category returns the code's category.
func (c Code) Category() Category {
	return registry[c].Category
}

// DefaultSeverity returns the code's severity before configuration overrides.
func (c Code) DefaultSeverity() Severity {
	if info, ok := registry[c]; ok {
		return info.Severity
	}

	return SeverityError
}

// Fixable reports whether diagnostics of this code carry a fix payload.
func (c Code) Fixable() bool {
	return registry[c].Payload != PayloadNone
}

// Codes returns every registered code, sorted.
func Codes() []Code {
	codes := make([]Code, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}

	slices.Sort(codes)

	return codes
}
