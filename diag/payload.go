package diag

// PayloadKind names the shape of a diagnostic payload.
type PayloadKind int

// Payload kinds.
const (
	PayloadNone PayloadKind = iota
	PayloadRemoval
	PayloadInsertion
	PayloadTypeReplacement
	PayloadClosure
	PayloadMissingRelation
	PayloadAnnotationMove
	PayloadRewrite
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadNone:
		return "none"
	case PayloadRemoval:
		return "removal"
	case PayloadInsertion:
		return "insertion"
	case PayloadTypeReplacement:
		return "type-replacement"
	case PayloadClosure:
		return "closure"
	case PayloadMissingRelation:
		return "missing-relation"
	case PayloadAnnotationMove:
		return "annotation-move"
	case PayloadRewrite:
		return "rewrite"
	default:
		return "unknown"
	}
}

// Payload is the typed data a diagnostic carries for fix generation.
// Offsets are byte offsets into the file named by the payload's path.
type Payload interface {
	Kind() PayloadKind
}

// PayloadFor returns the payload shape diagnostics of code carry.
func PayloadFor(code Code) PayloadKind {
	return registry[code].Payload
}

// NewPayload returns an empty payload of the given kind, or nil for PayloadNone.
//
//nolint:ireturn // closed set of payload variants
func NewPayload(kind PayloadKind) Payload {
	switch kind {
	case PayloadRemoval:
		return &Removal{}
	case PayloadInsertion:
		return &Insertion{}
	case PayloadTypeReplacement:
		return &TypeReplacement{}
	case PayloadClosure:
		return &Closure{}
	case PayloadMissingRelation:
		return &MissingRelation{}
	case PayloadAnnotationMove:
		return &AnnotationMove{}
	case PayloadRewrite:
		return &Rewrite{}
	default:
		return nil
	}
}

// Removal deletes Length bytes at Offset. What describes the removed text.
type Removal struct {
	Path   string `json:"path"   msgpack:"path"`
	Offset int    `json:"offset" msgpack:"offset"`
	Length int    `json:"length" msgpack:"length"`
	What   string `json:"what"   msgpack:"what"`
}

// Kind implements Payload.
func (*Removal) Kind() PayloadKind { return PayloadRemoval }

// Insertion inserts Text at Offset.
type Insertion struct {
	Path   string `json:"path"   msgpack:"path"`
	Offset int    `json:"offset" msgpack:"offset"`
	Text   string `json:"text"   msgpack:"text"`
	What   string `json:"what"   msgpack:"what"`
}

// Kind implements Payload.
func (*Insertion) Kind() PayloadKind { return PayloadInsertion }

// TypeReplacement overwrites a type reference with one of Candidates.
type TypeReplacement struct {
	Path       string   `json:"path"       msgpack:"path"`
	Offset     int      `json:"offset"     msgpack:"offset"`
	Length     int      `json:"length"     msgpack:"length"`
	Current    string   `json:"current"    msgpack:"current"`
	Candidates []string `json:"candidates" msgpack:"candidates"`
}

// Kind implements Payload.
func (*TypeReplacement) Kind() PayloadKind { return PayloadTypeReplacement }

// Closure turns an open record body into a closed one by rewriting both braces.
type Closure struct {
	Path        string `json:"path"        msgpack:"path"`
	OpenOffset  int    `json:"openOffset"  msgpack:"openOffset"`
	OpenLength  int    `json:"openLength"  msgpack:"openLength"`
	CloseOffset int    `json:"closeOffset" msgpack:"closeOffset"`
	CloseLength int    `json:"closeLength" msgpack:"closeLength"`
}

// Kind implements Payload.
func (*Closure) Kind() PayloadKind { return PayloadClosure }

// MissingRelation describes the back-reference field to add to Target.
type MissingRelation struct {
	Path      string `json:"path"      msgpack:"path"`
	Offset    int    `json:"offset"    msgpack:"offset"`
	Target    string `json:"target"    msgpack:"target"`
	FieldName string `json:"fieldName" msgpack:"fieldName"`
	FieldType string `json:"fieldType" msgpack:"fieldType"`
	Indent    string `json:"indent"    msgpack:"indent"`
}

// Kind implements Payload.
func (*MissingRelation) Kind() PayloadKind { return PayloadMissingRelation }

// Stub returns the line inserted into the target entity.
func (m *MissingRelation) Stub() string {
	return m.Indent + m.FieldName + ": " + m.FieldType + ";\n"
}

// AnnotationMove removes an annotation from one field and writes it onto another.
// The two fields may live in different files.
type AnnotationMove struct {
	FromPath   string `json:"fromPath"   msgpack:"fromPath"`
	FromOffset int    `json:"fromOffset" msgpack:"fromOffset"`
	FromLength int    `json:"fromLength" msgpack:"fromLength"`
	ToPath     string `json:"toPath"     msgpack:"toPath"`
	ToOffset   int    `json:"toOffset"   msgpack:"toOffset"`
	Annotation string `json:"annotation" msgpack:"annotation"`
	ToField    string `json:"toField"    msgpack:"toField"`
}

// Kind implements Payload.
func (*AnnotationMove) Kind() PayloadKind { return PayloadAnnotationMove }

// Rewrite replaces Length bytes at Offset with Text.
type Rewrite struct {
	Path   string `json:"path"   msgpack:"path"`
	Offset int    `json:"offset" msgpack:"offset"`
	Length int    `json:"length" msgpack:"length"`
	Text   string `json:"text"   msgpack:"text"`
	What   string `json:"what"   msgpack:"what"`
}

// Kind implements Payload.
func (*Rewrite) Kind() PayloadKind { return PayloadRewrite }
