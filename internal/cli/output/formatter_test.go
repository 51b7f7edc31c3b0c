package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

type sample struct {
	Name    string        `json:"name" yaml:"name"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	Owners  []string      `json:"owners" yaml:"owners"`
	Storage struct {
		Backend string `json:"backend" yaml:"backend"`
	} `json:"storage" yaml:"storage"`
	Hidden string `json:"-" yaml:"-"`
}

func newSample() sample {
	s := sample{Name: "bot", Timeout: 5 * time.Second, Owners: []string{"1", "2"}, Hidden: "x"}
	s.Storage.Backend = "file"
	return s
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("json")
	}
	if _, ok := NewFormatter(FormatYAML).(*YAMLFormatter); !ok {
		t.Error("yaml")
	}
	if _, ok := NewFormatter("other").(*TableFormatter); !ok {
		t.Error("default should be table")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).Format(&buf, newSample()); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["name"] != "bot" {
		t.Errorf("name = %v", got["name"])
	}
	if _, ok := got["Hidden"]; ok {
		t.Error("hidden field rendered")
	}
}

func TestJSONFormatter_NoHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).Format(&buf, map[string]string{"text": "<ping> & pong"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<ping> & pong") {
		t.Errorf("output escaped: %s", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatYAML).Format(&buf, newSample()); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Name    string   `yaml:"name"`
		Owners  []string `yaml:"owners"`
		Storage struct {
			Backend string `yaml:"backend"`
		} `yaml:"storage"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if got.Name != "bot" || got.Storage.Backend != "file" || len(got.Owners) != 2 {
		t.Errorf("decoded %+v", got)
	}
	if !strings.Contains(buf.String(), "storage:\n  backend: file") {
		t.Errorf("unexpected indentation:\n%s", buf.String())
	}
}
