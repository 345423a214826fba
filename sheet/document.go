package sheet

import (
	"encoding/json"
	"fmt"
	"time"
)

// DocumentVersion is written into exported documents.
const DocumentVersion = "1.0"

// Document is the persisted workbook form.
//
// A cell entry is either a bare content string or a DocCell carrying
// metadata.
type Document struct {
	Name        string                 `json:"name"`
	Version     string                 `json:"version"`
	SetupScript string                 `json:"setupScript,omitempty"`
	Cells       map[string]interface{} `json:"cells"`
	Metadata    *DocMetadata           `json:"metadata,omitempty"`
}

type DocCell struct {
	Content string `json:"content"`
	Comment string `json:"comment,omitempty"`
	Format  string `json:"format,omitempty"`
}

type DocMetadata struct {
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
	Created  string `json:"created,omitempty"`
	Modified string `json:"modified,omitempty"`
}

// Export builds a Document from the workbook's current raw content.
// Cached values are not exported; they're re-derived on import.
func Export(w *Workbook) *Document {
	doc := &Document{
		Name:        w.Name,
		Version:     DocumentVersion,
		SetupScript: w.SetupScript,
		Cells:       make(map[string]interface{}, len(w.Cells)),
	}

	var rows, cols int
	for _, ref := range w.Refs() {
		c := w.Cells[ref]
		if col, row, err := ParseRef(ref); err == nil {
			if rows < row {
				rows = row
			}
			if cols < col {
				cols = col
			}
		}
		if c.Comment == "" && c.Format == "" {
			doc.Cells[ref] = c.Content
		} else {
			doc.Cells[ref] = DocCell{
				Content: c.Content,
				Comment: c.Comment,
				Format:  c.Format,
			}
		}
	}

	doc.Metadata = &DocMetadata{
		Rows:     rows,
		Cols:     cols,
		Created:  w.Created.Format(time.RFC3339),
		Modified: w.Modified.Format(time.RFC3339),
	}

	return doc
}

// ExportJSON is Export rendered as JSON.
func ExportJSON(w *Workbook) ([]byte, error) {
	return json.Marshal(Export(w))
}

// ImportJSON replaces the workbook's cells with those of the given
// document.
//
// Two shapes are accepted.  The current shape has a "cells" property
// (and usually name/version/setupScript/metadata).  The legacy shape is
// a flat map of ref to content with no metadata at all; it's recognized
// by the absence of a "cells" property.
//
// Nothing is evaluated here.  Run Engine.Recalculate afterwards.
func ImportJSON(w *Workbook, data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bad document: %v", err)
	}
	return ImportMap(w, raw)
}

// ImportMap is ImportJSON for an already-decoded document.
func ImportMap(w *Workbook, raw map[string]interface{}) error {
	cells, structured := raw["cells"].(map[string]interface{})
	if !structured {
		cells = raw
	}

	w.Clear()

	if structured {
		if s, is := raw["name"].(string); is && s != "" {
			w.Name = s
		}
		if s, is := raw["setupScript"].(string); is {
			w.SetupScript = s
		}
	}

	for ref, x := range cells {
		switch v := x.(type) {
		case string:
			if _, err := w.Set(ref, v); err != nil {
				return err
			}
		case map[string]interface{}:
			content, _ := v["content"].(string)
			if _, err := w.Set(ref, content); err != nil {
				return err
			}
			var comment, format *string
			if s, is := v["comment"].(string); is && s != "" {
				comment = &s
			}
			if s, is := v["format"].(string); is && s != "" {
				format = &s
			}
			if comment != nil || format != nil {
				if _, err := w.SetMetadata(ref, comment, format); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("bad cell entry for %s (%T)", ref, x)
		}
	}

	return nil
}
