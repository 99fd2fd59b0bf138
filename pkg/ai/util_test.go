package ai

import "testing"

type sampleOutput struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestUnmarshalFlexible(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    sampleOutput
		wantErr bool
	}{
		{
			name:  "standard json",
			input: `{"name": "coli", "count": 2}`,
			want:  sampleOutput{Name: "coli", Count: 2},
		},
		{
			name:  "double encoded",
			input: `"{\"name\": \"coli\", \"count\": 2}"`,
			want:  sampleOutput{Name: "coli", Count: 2},
		},
		{
			name:  "malformed but repairable",
			input: `{name: "coli", count: 2}`,
			want:  sampleOutput{Name: "coli", Count: 2},
		},
		{
			name:  "duplicate leading brace",
			input: `{{"name": "coli", "count": 2}`,
			want:  sampleOutput{Name: "coli", Count: 2},
		},
		{
			name:  "surrounding whitespace",
			input: "  \n{\"name\": \"coli\", \"count\": 2}\n ",
			want:  sampleOutput{Name: "coli", Count: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got sampleOutput
			err := UnmarshalFlexible(tt.input, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalFlexible() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("UnmarshalFlexible() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(&sampleOutput{})
	if schema == nil {
		t.Fatal("GenerateSchema returned nil")
	}
}
