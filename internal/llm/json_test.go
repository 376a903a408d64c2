package llm

import "testing"

func TestFirstJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare array", `[1,2,3]`, `[1,2,3]`, false},
		{"wrapped in prose", "Here are the matches:\n[{\"index\":0}]\nHope that helps!", `[{"index":0}]`, false},
		{"nested arrays", `[[1],[2]] trailing`, `[[1],[2]]`, false},
		{"bracket inside string", `[{"title":"[draft] post"}]`, `[{"title":"[draft] post"}]`, false},
		{"escaped quote inside string", `[{"t":"say \"]\" now"}]`, `[{"t":"say \"]\" now"}]`, false},
		{"empty array", `no matches: []`, `[]`, false},
		{"no array", `sorry, nothing here`, "", true},
		{"unbalanced", `[1, 2`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FirstJSONArray(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"prose around", "Sure!\n{\"summary\":\"x\"}\nDone.", `{"summary":"x"}`, false},
		{"nested object", `{"a":{"b":2}} extra`, `{"a":{"b":2}}`, false},
		{"brace in string", `{"text":"use {} here"}`, `{"text":"use {} here"}`, false},
		{"no object", `nothing`, "", true},
		{"unbalanced", `{"a":`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FirstJSONObject(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
