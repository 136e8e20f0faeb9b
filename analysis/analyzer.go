package analysis

import (
	"cmp"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/diag"
)

// Source is the content of one .ent file.
type Source struct {
	Path string
	Data []byte
}

// Analyzer runs a complete pass over a set of sources: parsing, the known
// type index, entity building and relation resolution.
type Analyzer struct {
	log *zap.Logger
	cfg *entcheck.Config
}

// NewAnalyzer creates an analyzer. A nil logger discards output; a nil
// config keeps default severities.
func NewAnalyzer(log *zap.Logger, cfg *entcheck.Config) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}

	return &Analyzer{log: log, cfg: cfg}
}

// Analyze parses and analyzes the sources as one compilation unit. Sources
// are processed in path order so the first declaration of a name is stable.
func (a *Analyzer) Analyze(sources []Source) *Result {
	sorted := slices.Clone(sources)
	slices.SortStableFunc(sorted, func(x, y Source) int { return cmp.Compare(x.Path, y.Path) })

	var (
		files  = make([]*AnalyzedFile, 0, len(sorted))
		parsed = make([]*entcheck.File, 0, len(sorted))
		extra  []diag.Diagnostic
	)

	for _, src := range sorted {
		file, err := entcheck.Parse(src.Path, src.Data)
		files = append(files, &AnalyzedFile{Path: src.Path, File: file, ParseError: err})
		parsed = append(parsed, file)

		if err != nil {
			extra = append(extra, parseDiagnostics(src.Path, err)...)
			a.log.Debug("parse failed", zap.String("path", src.Path), zap.Error(err))
		}
	}

	types := NewTypeIndex(parsed...)
	session := NewSession(WithLogger(a.log))
	declared := make(map[string]string)

	for _, file := range parsed {
		if file == nil {
			continue
		}

		for _, rec := range file.Records {
			name := rec.Name.Name
			isEntity := rec.Annotation(annotationEntity) != nil

			if first, ok := declared[name]; ok {
				if isEntity {
					d := diag.New(diag.CodeDuplicateEntity, location(file.Path, rec.Name.Span), nil,
						"record %s is already declared in %s", name, first)
					d.Entity = name
					extra = append(extra, d)
				}

				continue
			}

			declared[name] = file.Path

			if !isEntity || rec.Broken {
				continue
			}

			// Only fails once the session is finished.
			_ = session.Add(Build(rec, file, types))
		}
	}

	res := session.Finish()
	res.Files = files
	res.Types = types
	res.Diagnostics = a.configure(append(extra, res.Diagnostics...))

	diag.Sort(res.Diagnostics)

	a.log.Debug("analysis finished",
		zap.Int("files", len(files)),
		zap.Int("entities", len(res.Entities)),
		zap.Int("diagnostics", len(res.Diagnostics)))

	return res
}

// configure drops disabled codes and applies severity overrides.
func (a *Analyzer) configure(ds []diag.Diagnostic) []diag.Diagnostic {
	if a.cfg == nil {
		return ds
	}

	out := ds[:0]

	for _, d := range ds {
		if slices.Contains(a.cfg.Disable, string(d.Code)) {
			continue
		}

		if s, ok := a.cfg.Severity[string(d.Code)]; ok {
			if sev, known := diag.ParseSeverity(s); known {
				d.Severity = sev
			}
		}

		out = append(out, d)
	}

	return out
}

// parseDiagnostics converts a parse error into parse-error diagnostics.
func parseDiagnostics(path string, err error) []diag.Diagnostic {
	var list entcheck.ErrorList

	start := diag.Position{Line: 1, Column: 1}
	if !errors.As(err, &list) {
		return []diag.Diagnostic{diag.New(diag.CodeParseError, diag.Location{Path: path, Start: start, End: start}, nil, "%s", err.Error())}
	}

	out := make([]diag.Diagnostic, 0, len(list))
	for _, e := range list {
		out = append(out, diag.New(diag.CodeParseError, location(path, entcheck.Span{Start: e.Pos, End: e.End}), nil, "%s", e.Msg))
	}

	return out
}
