package models

import (
	"reflect"
	"testing"
)

func TestTask_HasParent(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"no parent", Task{ID: "a"}, false},
		{"with parent", Task{ID: "a", ParentTaskID: "b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.HasParent(); got != tt.want {
				t.Errorf("HasParent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJoinDependentIDs(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"nil", nil, ""},
		{"single", []string{"a"}, "a"},
		{"multiple", []string{"a", "b", "c"}, "a,b,c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinDependentIDs(tt.ids); got != tt.want {
				t.Errorf("JoinDependentIDs(%v) = %q, want %q", tt.ids, got, tt.want)
			}
		})
	}
}

func TestSplitDependentIDs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "a", []string{"a"}},
		{"multiple", "a,b,c", []string{"a", "b", "c"}},
		{"whitespace trimmed", "a, b , c", []string{"a", "b", "c"}},
		{"empty segments skipped", "a,,b,", []string{"a", "b"}},
		{"only separators", ",,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitDependentIDs(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitDependentIDs(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDependentIDs_RoundTrip(t *testing.T) {
	ids := []string{"t1", "t2", "t3"}
	joined := JoinDependentIDs(ids)
	if got := SplitDependentIDs(joined); !reflect.DeepEqual(got, ids) {
		t.Errorf("round trip = %v, want %v", got, ids)
	}
}
