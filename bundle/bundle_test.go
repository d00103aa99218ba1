package bundle

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/skyportal/dump/blob/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type rec struct {
	Name string  `yaml:"name"`
	Lat  *string `yaml:"lat"`
	ID   string  `yaml:"=id"`
}

func sampleDocument() *Document {
	var doc Document
	AddSection(&doc, "telescope", []rec{{Name: "P48", ID: "P48"}, {Name: "P60", ID: "P60"}})
	AddSection(&doc, "instrument", []rec{})
	AddSection(&doc, "sources", []map[string]any{{"id": "ZTF21abc"}})
	return &doc
}

func TestWriteKeepsSectionOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleDocument().Write(&buf))

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &node))
	m := node.Content[0]
	require.Equal(t, yaml.MappingNode, m.Kind)

	var keys []string
	for i := 0; i < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	assert.Equal(t, []string{"telescope", "instrument", "sources"}, keys)

	var decoded struct {
		Telescope  []rec            `yaml:"telescope"`
		Instrument []rec            `yaml:"instrument"`
		Sources    []map[string]any `yaml:"sources"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []rec{{Name: "P48", ID: "P48"}, {Name: "P60", ID: "P60"}}, decoded.Telescope)
	assert.Empty(t, decoded.Instrument)
	assert.Equal(t, "ZTF21abc", decoded.Sources[0]["id"])
}

func TestWriteBlankLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleDocument().Write(&buf))

	assert.Equal(t, `telescope:
- name: P48
  lat: null
  =id: P48

- name: P60
  lat: null
  =id: P60

instrument: []

sources:
- id: ZTF21abc

`, buf.String())
}

func TestDocumentLen(t *testing.T) {
	doc := sampleDocument()
	assert.Equal(t, 2, doc.Len("telescope"))
	assert.Equal(t, 0, doc.Len("instrument"))
	assert.Equal(t, 0, doc.Len("missing"))
	assert.Equal(t, []string{"telescope", "instrument", "sources"}, doc.Sections())
}

func TestSaveAndSaveParams(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	_, err := Save(ctx, store, sampleDocument())
	require.NoError(t, err)

	info, err := SaveParams(ctx, store, []Param{
		{"localizationDateobs", "2019-04-25T08:18:05"},
		{"localizationName", nil},
		{"numPerPage", 100},
		{"url", "https://fritz.science"},
		{"token", "****abcd"},
	})
	require.NoError(t, err)
	assert.Equal(t, ParamsFile, info.Key)
	assert.Equal(t, []string{"config_used.yaml", "data.yaml"}, store.Keys())

	b, err := store.Get(ParamsFile)
	require.NoError(t, err)

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal(b, &node))
	m := node.Content[0]
	var keys []string
	for i := 0; i < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	assert.Equal(t, []string{"localizationDateobs", "localizationName", "numPerPage", "url", "token"}, keys)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(b, &got))
	assert.Nil(t, got["localizationName"])
	assert.Equal(t, 100, got["numPerPage"])
	assert.Equal(t, "****abcd", got["token"])
	assert.True(t, strings.Contains(string(b), "localizationName: null"))
}
