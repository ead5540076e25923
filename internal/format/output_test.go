package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	ID       string   `json:"id"`
	DueDate  string   `json:"dueDate"`
	Tags     []string `json:"tags"`
	Assignee *string  `json:"assignedTo"`
}

func TestWrite(t *testing.T) {
	v := sample{ID: "t1", DueDate: "2025-05-17", Tags: []string{"work"}}
	tests := []struct {
		format string
		pretty bool
		want   string
	}{
		{format: "", want: `{"id":"t1","dueDate":"2025-05-17","tags":["work"],"assignedTo":null}` + "\n"},
		{format: "json", pretty: true, want: "{\n  \"id\": \"t1\",\n  \"dueDate\": \"2025-05-17\",\n  \"tags\": [\n    \"work\"\n  ],\n  \"assignedTo\": null\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, v, tt.format, tt.pretty); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if buf.String() != tt.want {
				t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteYAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sample{ID: "t1", DueDate: "2025-05-17", Tags: []string{"work"}}, "yaml", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"id: t1", `dueDate: "2025-05-17"`, "- work", "assignedTo: null"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, 1, "edn", false)
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}
