// Package export renders activities as downloadable Word, Excel and PDF files.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yungbote/aula-backend/internal/domain/content"
)

// Field is one labelled value. Generic content is flattened into key paths such as "cards[0].front".
type Field struct {
	Key   string
	Value string
}

type Question struct {
	Number      int
	Text        string
	Options     []string
	Answer      string
	Explanation string
}

// Document is the format-neutral view every renderer consumes.
type Document struct {
	Title        string
	Meta         []Field
	Instructions string
	Questions    []Question
	Summary      string
	KeyPoints    []string
	Fields       []Field
}

type questionContent struct {
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
	Questions    []struct {
		Question    string   `json:"question"`
		Options     []string `json:"options"`
		Answer      any      `json:"answer"`
		Explanation string   `json:"explanation"`
	} `json:"questions"`
}

type summaryContent struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
}

// FromActivity normalizes an activity's JSON content for rendering.
func FromActivity(a *content.Activity) (*Document, error) {
	if a == nil {
		return nil, fmt.Errorf("export: nil activity")
	}
	doc := &Document{Title: strings.TrimSpace(a.Title)}
	doc.Meta = append(doc.Meta, Field{Key: "Type", Value: string(a.Type)})
	if a.Subject != "" {
		doc.Meta = append(doc.Meta, Field{Key: "Subject", Value: a.Subject})
	}
	if a.GradeLevel != "" {
		doc.Meta = append(doc.Meta, Field{Key: "Grade level", Value: a.GradeLevel})
	}
	raw := []byte(a.Content)
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}

	switch {
	case a.Type.HasQuestions():
		var qc questionContent
		if err := json.Unmarshal(raw, &qc); err != nil {
			return nil, fmt.Errorf("export: decode questions: %w", err)
		}
		if doc.Title == "" {
			doc.Title = qc.Title
		}
		doc.Instructions = qc.Instructions
		for i, q := range qc.Questions {
			doc.Questions = append(doc.Questions, Question{
				Number:      i + 1,
				Text:        q.Question,
				Options:     q.Options,
				Answer:      scalarString(q.Answer),
				Explanation: q.Explanation,
			})
		}
	case a.Type == content.TypeSummary:
		var sc summaryContent
		if err := json.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("export: decode summary: %w", err)
		}
		if doc.Title == "" {
			doc.Title = sc.Title
		}
		doc.Summary = sc.Summary
		doc.KeyPoints = sc.KeyPoints
	default:
		fields, err := Flatten(raw)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			if f.Key == "title" {
				if doc.Title == "" {
					doc.Title = f.Value
				}
				continue
			}
			doc.Fields = append(doc.Fields, f)
		}
	}
	if doc.Title == "" {
		doc.Title = string(a.Type)
	}
	return doc, nil
}

// OptionLabel returns "A", "B", ... for option index i.
func OptionLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return strconv.Itoa(i + 1)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// Flatten walks a JSON document in source order and emits one field per scalar leaf.
func Flatten(raw []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out []Field
	if err := flattenValue(dec, "", &out); err != nil {
		return nil, fmt.Errorf("export: flatten: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("export: flatten: trailing data")
	}
	return out, nil
}

func flattenValue(dec *json.Decoder, path string, out *[]Field) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := keyTok.(string)
				child := key
				if path != "" {
					child = path + "." + key
				}
				if err := flattenValue(dec, child, out); err != nil {
					return err
				}
			}
		case '[':
			for i := 0; dec.More(); i++ {
				if err := flattenValue(dec, fmt.Sprintf("%s[%d]", path, i), out); err != nil {
					return err
				}
			}
		}
		_, err = dec.Token()
		return err
	case nil:
		return nil
	case string:
		*out = append(*out, Field{Key: path, Value: t})
	case json.Number:
		*out = append(*out, Field{Key: path, Value: t.String()})
	case bool:
		*out = append(*out, Field{Key: path, Value: strconv.FormatBool(t)})
	}
	return nil
}
