package diagfmt

import (
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/google/uuid"

	"codespice/internal/diag"
	"codespice/internal/source"
)

const sarifSchema = "https://json.schemastore.org/sarif-2.1.0.json"

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool         `json:"tool"`
	AutomationDetails sarifAutomation   `json:"automationDetails"`
	Invocations       []sarifInvocation `json:"invocations,omitempty"`
	Results           []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	Properties       map[string]string `json:"properties,omitempty"`
}

type sarifAutomation struct {
	GUID string `json:"guid"`
}

type sarifInvocation struct {
	ExecutionSuccessful bool     `json:"executionSuccessful"`
	Arguments           []string `json:"arguments,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn"`
	EndLine     uint32 `json:"endLine"`
	EndColumn   uint32 `json:"endColumn"`
}

type sarifFix struct {
	Description     sarifMessage          `json:"description"`
	ArtifactChanges []sarifArtifactChange `json:"artifactChanges"`
}

type sarifArtifactChange struct {
	ArtifactLocation sarifArtifact      `json:"artifactLocation"`
	Replacements     []sarifReplacement `json:"replacements"`
}

type sarifReplacement struct {
	DeletedRegion   sarifRegion  `json:"deletedRegion"`
	InsertedContent sarifMessage `json:"insertedContent"`
}

// Sarif форматирует диагностики в SARIF формат (v2.1.0)
func Sarif(w io.Writer, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) error {
	codes := diag.Codes()
	ruleIndex := make(map[diag.Code]int, len(codes))
	rules := make([]sarifRule, 0, len(codes))
	for i, c := range codes {
		ruleIndex[c] = i
		rules = append(rules, sarifRule{
			ID:               c.ID(),
			Name:             c.Tag().String(),
			ShortDescription: sarifMessage{Text: c.Title()},
			Properties:       map[string]string{"tag": c.Tag().String()},
		})
	}

	guid := meta.GUID
	if guid == "" {
		guid = uuid.NewString()
	}
	name := meta.ToolName
	if name == "" {
		name = "codespice"
	}

	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           name,
			Version:        meta.ToolVersion,
			InformationURI: meta.InformationURI,
			Rules:          rules,
		}},
		AutomationDetails: sarifAutomation{GUID: guid},
		Invocations:       []sarifInvocation{{ExecutionSuccessful: true, Arguments: meta.InvocationArgs}},
		Results:           make([]sarifResult, 0, bag.Len()),
	}

	for _, d := range bag.Items() {
		idx, ok := ruleIndex[d.Code]
		if !ok {
			idx = -1
		}
		res := sarifResult{
			RuleID:    d.Code.ID(),
			RuleIndex: idx,
			Level:     sarifLevel(d.Severity),
			Message:   sarifMessage{Text: d.Message},
		}
		if loc, ok := sarifLocate(fs, d.Primary); ok {
			res.Locations = []sarifLocation{loc}
		}
		for _, fx := range d.Fixes {
			changes := map[string]*sarifArtifactChange{}
			var order []string
			for _, e := range fx.Edits {
				loc, ok := sarifLocate(fs, e.Span)
				if !ok {
					continue
				}
				uri := loc.PhysicalLocation.ArtifactLocation.URI
				ch, seen := changes[uri]
				if !seen {
					ch = &sarifArtifactChange{ArtifactLocation: sarifArtifact{URI: uri}}
					changes[uri] = ch
					order = append(order, uri)
				}
				ch.Replacements = append(ch.Replacements, sarifReplacement{
					DeletedRegion:   loc.PhysicalLocation.Region,
					InsertedContent: sarifMessage{Text: e.NewText},
				})
			}
			if len(order) == 0 {
				continue
			}
			sf := sarifFix{Description: sarifMessage{Text: fx.Title}}
			for _, uri := range order {
				sf.ArtifactChanges = append(sf.ArtifactChanges, *changes[uri])
			}
			res.Fixes = append(res.Fixes, sf)
		}
		run.Results = append(run.Results, res)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifLog{Schema: sarifSchema, Version: "2.1.0", Runs: []sarifRun{run}})
}

func sarifLevel(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

func sarifLocate(fs *source.FileSet, sp source.Span) (sarifLocation, bool) {
	if fs == nil || int(sp.File) >= fs.Len() {
		return sarifLocation{}, false
	}
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	return sarifLocation{PhysicalLocation: sarifPhysical{
		ArtifactLocation: sarifArtifact{URI: filepath.ToSlash(f.FormatPath("relative", fs.BaseDir()))},
		Region: sarifRegion{
			StartLine:   start.Line,
			StartColumn: start.Col,
			EndLine:     end.Line,
			EndColumn:   end.Col,
		},
	}}, true
}
